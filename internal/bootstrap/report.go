package bootstrap

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"mathtutor/internal/batch"
)

// WriteReport 输出运行汇总；asJSON 为 true 时输出 JSON
func WriteReport(w io.Writer, name string, report *batch.Report, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	if _, err := fmt.Fprintf(w, "%s: total=%d succeeded=%d failed=%d skipped=%d elapsed=%s\n",
		name, report.Total, report.Succeeded, report.Failed, report.Skipped,
		report.Elapsed.Round(time.Millisecond)); err != nil {
		return err
	}
	for _, f := range report.Failures {
		if _, err := fmt.Fprintf(w, "  FAILED %s [%s] after %d attempt(s): %s\n",
			f.Key, f.Code, f.Attempts, f.Message); err != nil {
			return err
		}
	}
	return nil
}
