package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/vietddude/genie/internal/core/domain"
)

func printSummary(out io.Writer, s *domain.BatchSummary) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "BATCH\tTOTAL\tSUCCEEDED\tFAILED\tSUCCESS RATE")
	_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s%%\n", s.BatchID, s.Total, s.Succeeded, s.Failed, s.SuccessRate)
	_ = w.Flush()
}

func printJobs(out io.Writer, jobs []*domain.JobRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "#\tLABEL\tSTATUS\tEMAIL\tERROR")
	for _, j := range jobs {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", j.Index, j.Label, j.Status, j.Email, j.Error)
	}
	_ = w.Flush()
}
