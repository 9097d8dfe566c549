package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/HendryAvila/Receptionist/internal/apperr"
	"github.com/HendryAvila/Receptionist/internal/docstore"
	"github.com/HendryAvila/Receptionist/internal/identity"
	"github.com/HendryAvila/Receptionist/internal/knowledge"
	"github.com/HendryAvila/Receptionist/internal/logging"
	"github.com/HendryAvila/Receptionist/internal/wizard"
	"github.com/spf13/cobra"
)

// report is what show prints.
type report struct {
	Progress  wizard.Progress      `json:"progress"`
	Revisions []docstore.Revision  `json:"revisions"`
	Knowledge *knowledge.Knowledge `json:"knowledge,omitempty"`
}

func newShowCmd(o *options) *cobra.Command {
	var (
		format string
		limit  int
		withKB bool
	)
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the saved draft, its recent saves and the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "text" {
				return fmt.Errorf("unknown format %q (want json or text)", format)
			}
			s, err := o.settings(cmd)
			if err != nil {
				return err
			}
			id, ok := identity.FromEnv(s.Identity).Current(cmd.Context())
			if !ok {
				return apperr.ErrNoIdentity
			}

			store, err := docstore.Open(s.Backend, s.DataDir)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			// Read only: no persister, so nothing is written back.
			sess, err := wizard.Load(ctx, id, store, wizard.WithLogger(logging.Discard()))
			if err != nil {
				return err
			}
			revs, err := store.Revisions(ctx, id, limit)
			if err != nil {
				return err
			}
			r := report{Progress: sess.Progress(), Revisions: revs}
			if withKB {
				runtime, _, err := store.LoadKnowledge(ctx, id)
				if err != nil {
					return err
				}
				k := knowledge.Synthesize(sess.Draft(), runtime)
				r.Knowledge = &k
			}

			out := cmd.OutOrStdout()
			if format == "text" {
				writeText(out, r)
				return nil
			}
			b, err := json.MarshalIndent(r, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json or text")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of recent saves to list")
	cmd.Flags().BoolVar(&withKB, "knowledge", true, "Include the effective configuration")
	return cmd
}

func writeText(w io.Writer, r report) {
	p := r.Progress
	state := "in progress"
	if p.Completed {
		state = "completed"
	}
	fmt.Fprintf(w, "Identity: %s\n", p.Identity)
	fmt.Fprintf(w, "Step:     %d/%d %s (%s)\n", p.Step, p.Total, p.Title, state)
	if len(p.Errors) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, path := range slices.Sorted(maps.Keys(p.Errors)) {
			fmt.Fprintf(w, "  %s: %s\n", path, p.Errors[path])
		}
	}
	if len(p.Dangling) > 0 {
		fmt.Fprintf(w, "Menu options with a missing department: %s\n", strings.Join(p.Dangling, ", "))
	}

	fmt.Fprintln(w, "Recent saves:")
	if len(r.Revisions) == 0 {
		fmt.Fprintln(w, "  none")
	}
	for _, rev := range r.Revisions {
		fmt.Fprintf(w, "  %s  %s\n", rev.CreatedAt.Format("2006-01-02 15:04:05"), strings.Join(rev.Fields, ", "))
	}

	if k := r.Knowledge; k != nil {
		fmt.Fprintln(w, "Effective configuration:")
		fmt.Fprintf(w, "  Business: %s\n", k.BusinessName)
		fmt.Fprintf(w, "  Agent:    %s (%s)\n", k.AgentName, k.AgentVoice)
		fmt.Fprintf(w, "  Greeting: %s\n", k.GreetingMessage)
		fmt.Fprintf(w, "  Phone:    %s\n", k.PhoneNumber)
		fmt.Fprintf(w, "  Departments: %d\n", len(k.Departments))
	}
}
