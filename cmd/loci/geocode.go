package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/xelth-com/loci/internal/config"
	"github.com/xelth-com/loci/internal/geocoding"
)

var errNoResult = errors.New("no result")

func newGeocodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "geocode <address>",
		Short: "Resolve an address to coordinates with the configured provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withGeocoder(cmd.Context(), func(ctx context.Context, g *geocoding.Geocoder) error {
				p := g.Geocode(ctx, args[0])
				if p == nil {
					return fmt.Errorf("%s: %w", args[0], errNoResult)
				}
				fmt.Printf("%f,%f\n", p.Lat, p.Lng)
				return nil
			})
		},
	}
}

func newReverseGeocodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reverse-geocode <lat> <lng>",
		Short: "Resolve coordinates to an address with the configured provider",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lat, lng, err := parseLatLng(args[0], args[1])
			if err != nil {
				return err
			}
			return withGeocoder(cmd.Context(), func(ctx context.Context, g *geocoding.Geocoder) error {
				address := g.Reverse(ctx, lat, lng)
				if address == "" {
					return fmt.Errorf("%s,%s: %w", args[0], args[1], errNoResult)
				}
				fmt.Println(address)
				return nil
			})
		},
	}
}

func parseLatLng(latStr, lngStr string) (float64, float64, error) {
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil || lat < -90 || lat > 90 {
		return 0, 0, fmt.Errorf("invalid latitude %q", latStr)
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil || lng < -180 || lng > 180 {
		return 0, 0, fmt.Errorf("invalid longitude %q", lngStr)
	}
	return lat, lng, nil
}

// withGeocoder needs only the geocoding settings, not the database
func withGeocoder(ctx context.Context, fn func(context.Context, *geocoding.Geocoder) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	g, err := geocoding.New(cfg.Geocode)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, geocodeTimeout)
	defer cancel()
	return fn(ctx, g)
}
