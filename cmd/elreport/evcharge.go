package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hemel-se/optimizer/pkg/easee"
	"github.com/hemel-se/optimizer/pkg/evcost"
	"github.com/hemel-se/optimizer/pkg/price"
)

var evchargeFlags struct {
	accessToken  string
	refreshToken string
	from         string
	to           string
	region       string
	fee          float64
	powerFee     float64
}

var evchargeCmd = &cobra.Command{
	Use:   "evcharge",
	Short: "Summarize EV charging costs against spot prices",
	RunE:  runEvcharge,
}

func init() {
	evchargeCmd.Flags().StringVar(&evchargeFlags.accessToken, "token", "", "easee API access token")
	evchargeCmd.Flags().StringVar(&evchargeFlags.refreshToken, "refresh-token", "", "easee refresh token, prints new tokens when given")
	evchargeCmd.Flags().StringVar(&evchargeFlags.from, "from", "", "zulu ISO 8601 time of earliest charging to include")
	evchargeCmd.Flags().StringVar(&evchargeFlags.to, "to", "", "zulu ISO 8601 time of first charging to exclude")
	evchargeCmd.Flags().StringVar(&evchargeFlags.region, "region", "SE3", "price region")
	evchargeCmd.Flags().Float64Var(&evchargeFlags.fee, "fee", 0, "fees and taxes per kWh excl VAT")
	evchargeCmd.Flags().Float64Var(&evchargeFlags.powerFee, "power-fee", 0, "cost per peak kWh/h excl VAT")
	_ = evchargeCmd.MarkFlagRequired("token")
	_ = evchargeCmd.MarkFlagRequired("from")
	_ = evchargeCmd.MarkFlagRequired("to")
	rootCmd.AddCommand(evchargeCmd)
}

func runEvcharge(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	from, err := time.Parse(time.RFC3339, evchargeFlags.from)
	if err != nil {
		return fmt.Errorf("parsing from: %w", err)
	}
	to, err := time.Parse(time.RFC3339, evchargeFlags.to)
	if err != nil {
		return fmt.Errorf("parsing to: %w", err)
	}

	client := easee.NewClient(evchargeFlags.accessToken)
	if evchargeFlags.refreshToken != "" {
		tokens, err := client.RefreshTokens(ctx, evchargeFlags.refreshToken)
		if err != nil {
			return fmt.Errorf("refreshing tokens: %w", err)
		}
		fmt.Printf("Use these tokens next time (valid %d seconds):\n%s %s\n",
			tokens.ExpiresIn, tokens.AccessToken, tokens.RefreshToken)
		client = easee.NewClient(tokens.AccessToken)
	}

	var fees *evcost.Fees
	if evchargeFlags.fee != 0 || evchargeFlags.powerFee != 0 {
		fees = &evcost.Fees{PerKWh: evchargeFlags.fee, PowerFee: evchargeFlags.powerFee}
	}
	analyzer := evcost.NewAnalyzer(price.NewClient(evchargeFlags.region))

	chargers, err := client.Chargers(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Cost report in %s for period %s - %s\n", evchargeFlags.region, evchargeFlags.from, evchargeFlags.to)
	for _, charger := range chargers {
		hours, err := client.HourlyEnergy(ctx, charger.ID, from, to)
		if err != nil {
			return err
		}
		report, err := analyzer.Summarize(ctx, hours, fees)
		if err != nil {
			return err
		}

		fmt.Printf("\n%s (%s)\n", charger.Name, charger.ID)
		fmt.Printf("  Consumption: %.3f kWh\n", report.Energy)
		fmt.Printf("  Peak: %.3f kWh/h\n", report.PeakKWhPerHour)
		fmt.Printf("  Spot cost: %.3f SEK (without VAT and fees)\n", report.SpotCost)
		if report.TotalCost != nil {
			fmt.Printf("  Total incl all fees and VAT: %.3f SEK\n", *report.TotalCost)
		}
	}
	return nil
}
