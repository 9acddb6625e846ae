// Package status runs health checks across Sara's external dependencies
// and formats them as a Slack-ready report.
package status

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"sarabot/internal/domain"
	"sarabot/internal/sheets"
)

// Check is one named probe. Run returns nil when healthy.
type Check struct {
	Name string
	Run  func(ctx context.Context) error
}

// Checker runs its checks in order with a per-check timeout.
type Checker struct {
	checks  []Check
	timeout time.Duration
	logger  *slog.Logger
}

func NewChecker(logger *slog.Logger, checks ...Check) *Checker {
	return &Checker{checks: checks, timeout: 10 * time.Second, logger: logger}
}

// Result is one check's outcome.
type Result struct {
	Name string
	Err  error
}

func (c *Checker) Run(ctx context.Context) []Result {
	results := make([]Result, 0, len(c.checks))
	for _, check := range c.checks {
		checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err := check.Run(checkCtx)
		cancel()
		if err != nil {
			c.logger.Warn("health check failed", "check", check.Name, "error", err)
		}
		results = append(results, Result{Name: check.Name, Err: err})
	}
	return results
}

// Report runs all checks and renders the outcome.
func (c *Checker) Report(ctx context.Context) string {
	results := c.Run(ctx)

	healthy := 0
	var sb strings.Builder
	sb.WriteString("*Service status*\n")
	for _, r := range results {
		if r.Err == nil {
			healthy++
			fmt.Fprintf(&sb, ":white_check_mark: %s\n", r.Name)
		} else {
			fmt.Fprintf(&sb, ":x: %s — %v\n", r.Name, r.Err)
		}
	}
	fmt.Fprintf(&sb, "\n%d/%d services healthy", healthy, len(results))
	return sb.String()
}

// --- Standard checks ---

// LLMCheck probes the language model endpoint.
func LLMCheck(llm domain.LLM) Check {
	return Check{
		Name: "Language model (" + llm.Name() + ")",
		Run:  llm.Healthy,
	}
}

// SheetsCheck reads one range to prove both credentials and sheet access.
func SheetsCheck(reader sheets.Reader, sheetID, readRange string) Check {
	return Check{
		Name: "Google Sheets",
		Run: func(ctx context.Context) error {
			if sheetID == "" {
				return fmt.Errorf("no sheet configured")
			}
			_, err := reader.Read(ctx, sheetID, readRange)
			return err
		},
	}
}

// TemplateCheck verifies a docx template exists and is a regular file.
func TemplateCheck(name, path string) Check {
	return Check{
		Name: name,
		Run: func(ctx context.Context) error {
			info, err := os.Stat(path)
			if err != nil {
				return err
			}
			if info.IsDir() {
				return fmt.Errorf("%s is a directory", path)
			}
			return nil
		},
	}
}

// SMTPCheck verifies the mail server accepts TCP connections. It does not
// authenticate, so a bad password still shows up only on a real send.
func SMTPCheck(host string, port int) Check {
	return Check{
		Name: "SMTP (" + host + ")",
		Run: func(ctx context.Context) error {
			if host == "" {
				return fmt.Errorf("no SMTP host configured")
			}
			var d net.Dialer
			conn, err := d.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", host, port))
			if err != nil {
				return err
			}
			return conn.Close()
		},
	}
}
