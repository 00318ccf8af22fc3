package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mediquest/medscan/pkg/types"
)

var (
	profileName       string
	profileAge        int
	profileGender     string
	profileHeight     float64
	profileWeight     float64
	profileBlood      string
	profileConditions string
	profileAllergies  string
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show or update the health profile",
	Long: `Show the stored health profile, or update the fields given as flags.

Examples:
  medscan profile
  medscan profile --name "Alice" --age 34 --height 170 --weight 65
  medscan profile --conditions "asthma, hypertension" --allergies penicillin`,
	RunE: runProfile,
}

func init() {
	profileCmd.Flags().StringVar(&profileName, "name", "", "patient name")
	profileCmd.Flags().IntVar(&profileAge, "age", 0, "age in years")
	profileCmd.Flags().StringVar(&profileGender, "gender", "", "gender")
	profileCmd.Flags().Float64Var(&profileHeight, "height", 0, "height in cm")
	profileCmd.Flags().Float64Var(&profileWeight, "weight", 0, "weight in kg")
	profileCmd.Flags().StringVar(&profileBlood, "blood-group", "", "blood group")
	profileCmd.Flags().StringVar(&profileConditions, "conditions", "", "comma-separated chronic conditions")
	profileCmd.Flags().StringVar(&profileAllergies, "allergies", "", "comma-separated allergies")
}

func runProfile(cmd *cobra.Command, args []string) error {
	ms, err := newInstance()
	if err != nil {
		return err
	}
	defer ms.Close()

	ctx := context.Background()
	current, err := ms.Profile(ctx)
	if err != nil {
		return err
	}

	var profile types.HealthProfile
	if current != nil {
		profile = *current
	}

	flags := cmd.Flags()
	changed := false
	if flags.Changed("name") {
		profile.Name = profileName
		changed = true
	}
	if flags.Changed("age") {
		profile.Age = profileAge
		changed = true
	}
	if flags.Changed("gender") {
		profile.Gender = profileGender
		changed = true
	}
	if flags.Changed("height") {
		profile.HeightCm = profileHeight
		changed = true
	}
	if flags.Changed("weight") {
		profile.WeightKg = profileWeight
		changed = true
	}
	if flags.Changed("blood-group") {
		profile.BloodGroup = profileBlood
		changed = true
	}
	if flags.Changed("conditions") {
		profile.Conditions = splitList(profileConditions)
		changed = true
	}
	if flags.Changed("allergies") {
		profile.Allergies = splitList(profileAllergies)
		changed = true
	}

	if changed {
		if err := ms.SaveProfile(ctx, profile); err != nil {
			return err
		}
		fmt.Println("Profile updated.")
	} else if current == nil {
		fmt.Printf("No profile stored%s\n", storeHint())
		fmt.Println("Set one with flags, e.g.: medscan profile --name \"Alice\" --age 34")
		return nil
	}

	printProfile(cmd.OutOrStdout(), profile)
	return nil
}

func printProfile(w io.Writer, p types.HealthProfile) {
	dim := color.New(color.FgHiBlack)

	fmt.Fprintln(w)
	if p.Name != "" {
		fmt.Fprintf(w, "Name:        %s\n", p.Name)
	}
	if p.Age > 0 {
		fmt.Fprintf(w, "Age:         %d\n", p.Age)
	}
	if p.Gender != "" {
		fmt.Fprintf(w, "Gender:      %s\n", p.Gender)
	}
	if p.HeightCm > 0 {
		fmt.Fprintf(w, "Height:      %.0f cm\n", p.HeightCm)
	}
	if p.WeightKg > 0 {
		fmt.Fprintf(w, "Weight:      %.1f kg\n", p.WeightKg)
	}
	if p.BloodGroup != "" {
		fmt.Fprintf(w, "Blood group: %s\n", p.BloodGroup)
	}
	if len(p.Conditions) > 0 {
		fmt.Fprintf(w, "Conditions:  %s\n", strings.Join(p.Conditions, ", "))
	}
	if len(p.Allergies) > 0 {
		fmt.Fprintf(w, "Allergies:   %s\n", strings.Join(p.Allergies, ", "))
	}
	_, _ = dim.Fprintln(w, "\nProfile data stays on the configured store and is only sent to the AI backend for scoring.")
}

// splitList turns a comma-separated flag value into trimmed entries.
func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := []string{}
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
