package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/talgya/privacy-world/internal/agents"
	"github.com/talgya/privacy-world/internal/world"
)

var privacyTypes = []agents.PrivacyType{agents.Cautious, agents.Conscientious, agents.Casual}

type locationRow struct {
	world.Location
	Scores map[string]agents.Scores `json:"scores"`
	Best   map[string]string        `json:"best"`
}

func newLocationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "locations",
		Short: "List the places agents visit and what each archetype would share there",
		RunE: func(cmd *cobra.Command, args []string) error {
			var rows []locationRow
			for _, loc := range world.Catalogue() {
				row := locationRow{Location: loc, Scores: map[string]agents.Scores{}, Best: map[string]string{}}
				for _, pt := range privacyTypes {
					s := agents.Evaluate(agents.ArchetypeFor(pt).Weights, &loc)
					row.Scores[pt.String()] = s
					row.Best[pt.String()] = s.Best().String()
				}
				rows = append(rows, row)
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(rows)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprint(tw, "ID\tNAME\tPLEASURE\tRECOGNITION\tPRIVACY\tSECURITY")
			for _, pt := range privacyTypes {
				fmt.Fprintf(tw, "\t%s", pt)
			}
			fmt.Fprintln(tw)
			for _, r := range rows {
				a := r.Attributes
				fmt.Fprintf(tw, "%d\t%s\t%g\t%g\t%g\t%g", r.ID, r.Name,
					a[world.Pleasure], a[world.Recognition], a[world.Privacy], a[world.Security])
				for _, pt := range privacyTypes {
					fmt.Fprintf(tw, "\t%s", r.Best[pt.String()])
				}
				fmt.Fprintln(tw)
			}
			return tw.Flush()
		},
	}
}
