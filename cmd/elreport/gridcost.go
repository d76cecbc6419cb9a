package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hemel-se/optimizer/pkg/gridcost"
	"github.com/hemel-se/optimizer/pkg/price"
)

var gridcostRegion string

var gridcostCmd = &cobra.Command{
	Use:   "gridcost <consumption.csv>",
	Short: "Price a grid operator hourly consumption export against spot prices",
	Args:  cobra.ExactArgs(1),
	RunE:  runGridcost,
}

func init() {
	gridcostCmd.Flags().StringVar(&gridcostRegion, "region", "SE3", "price region")
	rootCmd.AddCommand(gridcostCmd)
}

func runGridcost(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	report, err := gridcost.NewAnalyzer(price.NewClient(gridcostRegion)).Analyze(cmd.Context(), f)
	if err != nil {
		return err
	}

	fmt.Println("Spot costs in SEK without certificates, VAT, markup, taxes and grid fees")
	for _, day := range report.Days {
		fmt.Printf("\n%s cost %.2f SEK\n", day.Day.Format("2006-01-02"), day.Cost)
		fmt.Printf("most expensive hour started %02d:00 and cost %d öre\n",
			day.MostExpensiveHour, int(day.MostExpensiveHourCost*100))
	}
	fmt.Printf("\nTotal cost for the period %s - %s: %.2f SEK\n",
		report.From.Format("2006-01-02"), report.To.Format("2006-01-02"), report.TotalCost)
	return nil
}
