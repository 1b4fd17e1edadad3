package commands

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var weightsCmd = &cobra.Command{
	Use:   "weights",
	Short: "Show or edit the sector weight vector",
}

var weightsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current weight vector",
	RunE:  runWeightsShow,
}

var weightsSetCmd = &cobra.Command{
	Use:   "set <sector> <weight>",
	Short: "Set one sector's weight and redistribute the rest",
	Args:  cobra.ExactArgs(2),
	RunE:  runWeightsSet,
}

func init() {
	rootCmd.AddCommand(weightsCmd)
	weightsCmd.AddCommand(weightsShowCmd)
	weightsCmd.AddCommand(weightsSetCmd)
}

func printWeights(weights map[string]float64) {
	names := make([]string, 0, len(weights))
	for name := range weights {
		names = append(names, name)
	}
	sort.Strings(names)

	var total float64
	for _, name := range names {
		fmt.Printf("  %-28s %7.3f\n", name, weights[name])
		total += weights[name]
	}
	fmt.Printf("  %-28s %7.3f\n", "TOTAL", total)
}

func runWeightsShow(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	weights, err := app.redistributor.Current(ctx)
	if err != nil {
		return err
	}

	printWeights(weights)
	return nil
}

func runWeightsSet(cmd *cobra.Command, args []string) error {
	sector := args[0]
	weight, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid weight %q: %w", args[1], err)
	}

	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	updated, err := app.redistributor.ApplyEdit(ctx, sector, weight)
	if err != nil {
		return err
	}

	fmt.Printf("Updated weights after setting %s to %.3f:\n", sector, weight)
	printWeights(updated)
	return nil
}
