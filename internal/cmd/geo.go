package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"fieldsales-workers/internal/visit"
)

func newGeoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "geo",
		Short: "Geofence helpers",
	}

	var radius float64
	distance := &cobra.Command{
		Use:   "distance <client lat,lng> <device lat,lng>",
		Short: "Measure a device against a client's geofence",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := parseCoordinates(args[0])
			if err != nil {
				return fmt.Errorf("client: %w", err)
			}
			device, err := parseCoordinates(args[1])
			if err != nil {
				return fmt.Errorf("device: %w", err)
			}

			res, err := visit.CheckGeofence(client, device, radius, false)
			if err != nil && !errors.Is(err, visit.ErrOverrideRequired) {
				return err
			}
			state := "inside"
			if !res.Inside {
				state = "outside (check-in needs an override)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "distance: %.1f m\nradius:   %.0f m\nresult:   %s\n",
				res.DistanceMeters, res.RadiusMeters, state)
			return nil
		},
	}
	distance.Flags().Float64Var(&radius, "radius", visit.DefaultGeofenceRadius, "geofence radius in meters")

	cmd.AddCommand(distance)
	return cmd
}

func parseCoordinates(s string) (visit.Coordinates, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return visit.Coordinates{}, fmt.Errorf("%q is not lat,lng", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return visit.Coordinates{}, fmt.Errorf("latitude: %w", err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return visit.Coordinates{}, fmt.Errorf("longitude: %w", err)
	}
	c := visit.Coordinates{Latitude: lat, Longitude: lng}
	if !c.Valid() {
		return visit.Coordinates{}, fmt.Errorf("%q is outside the globe", s)
	}
	return c, nil
}
