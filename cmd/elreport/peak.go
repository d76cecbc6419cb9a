package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hemel-se/optimizer/pkg/easee"
	"github.com/hemel-se/optimizer/pkg/peak"
	"github.com/hemel-se/optimizer/pkg/tibber"
	"github.com/hemel-se/optimizer/pkg/weather"
)

var peakFlags struct {
	tibberToken    string
	homeID         string
	from           string
	to             string
	easeeToken     string
	irradianceFile string
}

var peakCmd = &cobra.Command{
	Use:   "peak",
	Short: "Analyze peak power use, optionally excluding EV charging",
	RunE:  runPeak,
}

func init() {
	peakCmd.Flags().StringVar(&peakFlags.tibberToken, "tibber-token", "", "tibber API token")
	peakCmd.Flags().StringVar(&peakFlags.homeID, "home", "", "tibber home id, defaults to the first home")
	peakCmd.Flags().StringVar(&peakFlags.from, "from", "", "first day to analyze (2006-01-02)")
	peakCmd.Flags().StringVar(&peakFlags.to, "to", "", "first day to exclude, defaults to today")
	peakCmd.Flags().StringVar(&peakFlags.easeeToken, "easee-token", "", "easee access token, excludes EV charging when given")
	peakCmd.Flags().StringVar(&peakFlags.irradianceFile, "irradiance", "", "SMHI irradiance CSV for solar panel valuation")
	_ = peakCmd.MarkFlagRequired("tibber-token")
	_ = peakCmd.MarkFlagRequired("from")
	rootCmd.AddCommand(peakCmd)
}

func runPeak(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	from, err := time.ParseInLocation("2006-01-02", peakFlags.from, time.Local)
	if err != nil {
		return fmt.Errorf("parsing from: %w", err)
	}
	to := time.Now()
	if peakFlags.to != "" {
		to, err = time.ParseInLocation("2006-01-02", peakFlags.to, time.Local)
		if err != nil {
			return fmt.Errorf("parsing to: %w", err)
		}
	}

	client := tibber.NewClient(peakFlags.tibberToken)
	homeID := peakFlags.homeID
	if homeID == "" {
		viewer, err := client.Viewer(ctx)
		if err != nil {
			return err
		}
		if len(viewer.Homes) == 0 {
			return fmt.Errorf("no homes on the tibber account")
		}
		homeID = viewer.Homes[0].ID
	}

	hours := int(to.Sub(from).Hours())
	consumption, err := client.HourlyConsumptionFrom(ctx, homeID, from, hours)
	if err != nil {
		return err
	}

	var chargerHours []easee.HourlyEnergy
	if peakFlags.easeeToken != "" {
		ec := easee.NewClient(peakFlags.easeeToken)
		chargers, err := ec.Chargers(ctx)
		if err != nil {
			return err
		}
		for _, charger := range chargers {
			ch, err := ec.HourlyEnergy(ctx, charger.ID, from, to)
			if err != nil {
				return err
			}
			chargerHours = append(chargerHours, ch...)
		}
	}

	var irradiance *weather.Irradiance
	if peakFlags.irradianceFile != "" {
		irradiance, err = weather.LoadIrradiance(peakFlags.irradianceFile)
		if err != nil {
			return err
		}
	}

	printPeakReport(peak.Analyze(peak.DefaultConfig(), consumption, chargerHours, irradiance))
	return nil
}

func printPeakReport(report *peak.Report) {
	fmt.Printf("Period %s - %s\n", report.From.Format("2006-01-02"), report.To.Format("2006-01-02"))
	fmt.Printf("Energy: %.1f kWh for %.2f SEK\n", report.Energy, report.Cost)
	if report.EVExcluded {
		fmt.Printf("EV charging excluded: %.1f kWh for %.2f SEK\n", report.EVEnergy, report.EVCost)
	}

	fmt.Println("\nMonth peaks (EV charging included):")
	for _, p := range report.MonthPeaksInclEV {
		fmt.Printf("  %-9s %6.2f kWh/h at %s\n", p.Month, p.KWhPerHour, p.At.Format("2006-01-02 15:04"))
	}

	fmt.Println("\nTop peaks during high cost hours:")
	for _, p := range report.HighPeaks {
		fmt.Printf("  %6.2f kWh/h x%d, first %s\n", p.KWhPerHour, len(p.Times), p.Times[0].Format("2006-01-02 15:04"))
	}
	fmt.Println("Top peaks during low cost hours:")
	for _, p := range report.LowPeaks {
		fmt.Printf("  %6.2f kWh/h x%d, first %s\n", p.KWhPerHour, len(p.Times), p.Times[0].Format("2006-01-02 15:04"))
	}

	fmt.Println("\nPer hour distribution:")
	for hour, stat := range report.Distribution {
		if stat.Samples == 0 {
			continue
		}
		fmt.Printf("  %02d:00 avg %5.2f peak %5.2f kWh/h\n", hour, stat.Average, stat.Peak)
	}

	if report.Solar != nil {
		fmt.Printf("\nSolar panels would have exported %.1f kWh worth %.2f SEK\n",
			report.Solar.ExportedEnergy, report.Solar.ExportedValue)
		fmt.Printf("and covered %.1f kWh of own use worth %.2f SEK\n",
			report.Solar.SelfUsedEnergy, report.Solar.SelfUsedValue)
		fmt.Printf("(irradiance data ends %s)\n", report.Solar.LastObservation.Format("2006-01-02 15:04"))
	}
}
