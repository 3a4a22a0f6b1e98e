// Package cmd wires the command line onto the scan engine.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dirblast/dirblast/internal/config"
	"github.com/dirblast/dirblast/internal/engine"
	"github.com/dirblast/dirblast/pkg/version"
)

var (
	opts       config.Options
	rawHeaders []string
	filterSize string
	filterWord string
)

type flagGroup struct {
	title string
	flags []string
}

var helpGroups = []flagGroup{
	{"TARGET", []string{"url", "wordlist"}},
	{"PERFORMANCE", []string{"threads", "timeout", "max-rps", "retries"}},
	{"EVASION", []string{"rotate-user-agent", "rotate-ip-headers", "user-agents", "delay-min", "delay-max", "cache-bust"}},
	{"WILDCARDS", []string{"detect-wildcards", "wildcard-tolerance"}},
	{"FILTERS", []string{"filter-codes", "filter-size", "filter-time", "filter-words", "only-success"}},
	{"HTTP", []string{"header", "user-agent", "auth-header", "basic-auth", "bearer-token", "proxy", "follow-redirects", "insecure", "cookie-jar"}},
	{"STATE", []string{"state-file", "checkpoint-interval"}},
	{"OUTPUT", []string{"output", "format", "sort", "on-result", "quiet", "no-color", "no-progress"}},
}

var rootCmd = &cobra.Command{
	Use:     "dirblast -u <url> -w <wordlist> [flags]",
	Short:   "Concurrent web content discovery with wildcard filtering",
	Version: version.Version,
	Long: `dirblast probes candidate paths on a web server from a wordlist,
filters out server-generated wildcard noise, and reports surviving hits.
Interrupted scans checkpoint their progress and can be resumed.`,
	Example: `  dirblast -u https://example.com -w wordlist.txt
  dirblast -u https://example.com -w wordlist.txt -t 50 --only-success
  dirblast -u https://example.com -w wordlist.txt --filter-codes 404,403
  dirblast -u https://example.com -w wordlist.txt --rotate-user-agent --delay-min 100ms --delay-max 500ms
  dirblast -u https://example.com -w wordlist.txt --state-file scan.state
  dirblast -u https://example.com -w wordlist.txt -o results.json --format json`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if opts.URL != "" && !strings.HasPrefix(opts.URL, "http://") && !strings.HasPrefix(opts.URL, "https://") {
			opts.URL = "http://" + opts.URL
		}

		headers, err := config.ParseHeaders(rawHeaders)
		if err != nil {
			return err
		}
		opts.Headers = headers

		if opts.FilterSize, err = config.ParseRange(filterSize); err != nil {
			return err
		}
		if opts.FilterWords, err = config.ParseRange(filterWord); err != nil {
			return err
		}

		return opts.Validate()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		summary, err := engine.Run(ctx, &opts)
		if err != nil {
			return err
		}
		if summary.State == engine.StateCancelled && opts.StateFile != "" && !opts.Quiet {
			fmt.Fprintf(os.Stderr, "[*] Progress saved to %s - rerun with the same flags to resume\n", opts.StateFile)
		}
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	f := rootCmd.Flags()

	// Target
	f.StringVarP(&opts.URL, "url", "u", "", "Target base URL")
	f.StringVarP(&opts.WordlistPath, "wordlist", "w", "", "Wordlist path")

	// Performance
	f.IntVarP(&opts.Threads, "threads", "t", 20, "Number of concurrent workers")
	f.DurationVar(&opts.Timeout, "timeout", 5*time.Second, "HTTP request timeout")
	f.Float64Var(&opts.MaxRPS, "max-rps", 0, "Cap on requests per second (0 = unlimited)")
	f.IntVar(&opts.Retries, "retries", 0, "Retries per request on transport errors and 429/5xx")

	// Evasion
	f.BoolVar(&opts.RotateUserAgent, "rotate-user-agent", false, "Rotate the User-Agent per request")
	f.BoolVar(&opts.RotateIPHeaders, "rotate-ip-headers", false, "Rotate spoofed client-IP headers per request")
	f.StringVar(&opts.UserAgentsPath, "user-agents", "", "File of User-Agent strings, one per line (default: built-in pool)")
	f.DurationVar(&opts.DelayMin, "delay-min", 0, "Minimum pre-request delay")
	f.DurationVar(&opts.DelayMax, "delay-max", 0, "Maximum pre-request delay")
	f.BoolVar(&opts.CacheBust, "cache-bust", false, "Append random cache-busting suffixes to some requests")

	// Wildcard detection
	f.BoolVar(&opts.DetectWildcards, "detect-wildcards", true, "Detect and suppress catch-all responses")
	f.Int64Var(&opts.WildcardTolerance, "wildcard-tolerance", 50, "Content-length fuzz window in bytes for wildcard matching")

	// Filtering
	f.VarP(&intSliceValue{target: &opts.ExcludeStatus}, "filter-codes", "x", "Hide these status codes (comma-separated)")
	f.StringVar(&filterSize, "filter-size", "", "Keep only responses with size in range (e.g. 100-5000 or 1234)")
	f.DurationVar(&opts.FilterTime, "filter-time", 0, "Hide responses slower than this")
	f.StringVar(&filterWord, "filter-words", "", "Keep only responses with word count in range (e.g. 50-200)")
	f.BoolVar(&opts.OnlySuccess, "only-success", false, "Keep only 2xx responses")

	// HTTP
	f.StringSliceVarP(&rawHeaders, "header", "H", nil, "Custom headers (Key: Value)")
	f.StringVar(&opts.UserAgent, "user-agent", "", "Static User-Agent string")
	f.StringVar(&opts.AuthHeader, "auth-header", "", "Raw Authorization header value")
	f.StringVar(&opts.BasicAuth, "basic-auth", "", "Basic auth credentials (user:pass)")
	f.StringVar(&opts.BearerToken, "bearer-token", "", "Bearer token")
	f.StringVar(&opts.Proxy, "proxy", "", "HTTP/SOCKS proxy URL")
	f.BoolVar(&opts.FollowRedirects, "follow-redirects", false, "Follow HTTP redirects")
	f.BoolVarP(&opts.Insecure, "insecure", "k", true, "Skip TLS certificate verification")
	f.BoolVar(&opts.CookieJar, "cookie-jar", false, "Retain cookies across requests")

	// Checkpoint / resume
	f.StringVar(&opts.StateFile, "state-file", "", "File to save/load scan progress for resume")
	f.IntVar(&opts.CheckpointInterval, "checkpoint-interval", 256, "Completed candidates between periodic checkpoint writes")

	// Output
	f.StringVarP(&opts.OutputFile, "output", "o", "", "Output file path")
	f.StringVar(&opts.OutputFormat, "format", "text", "Output format: text, json, csv, xml")
	f.StringVar(&opts.SortBy, "sort", "", "Sort results: status, path, size (buffers until scan completes)")
	f.StringVar(&opts.OnResultCmd, "on-result", "", "Shell command to run per accepted result (receives JSON on stdin)")
	f.BoolVarP(&opts.Quiet, "quiet", "q", false, "Minimal output")
	f.BoolVar(&opts.NoColor, "no-color", false, "Disable colored output")
	f.BoolVar(&opts.NoProgress, "no-progress", false, "Disable the progress line")

	_ = rootCmd.MarkFlagRequired("url")
	_ = rootCmd.MarkFlagRequired("wordlist")

	// Categorized help, grouped by concern.
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		w := os.Stderr
		fmt.Fprint(w, helpBanner(cmd.Version))
		fmt.Fprintf(w, "%s\n\nUsage:\n  %s\n", cmd.Long, cmd.UseLine())
		fmt.Fprintf(w, "\nExamples:\n%s\n", cmd.Example)
		fmt.Fprintf(w, "\nFlags:\n")
		for _, g := range helpGroups {
			fmt.Fprintf(w, "\n%s:\n", g.title)
			for _, name := range g.flags {
				if fl := cmd.Flags().Lookup(name); fl != nil {
					fmt.Fprintln(w, formatFlag(fl))
				}
			}
		}
		fmt.Fprintln(w)
	})
}

// Execute runs the root command. Fatal errors exit non-zero with a
// descriptive message.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, config.ErrConfiguration) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// intSliceValue implements pflag.Value for comma-separated int slices.
type intSliceValue struct {
	target *[]int
}

func (v *intSliceValue) String() string {
	if v.target == nil || len(*v.target) == 0 {
		return ""
	}
	parts := make([]string, len(*v.target))
	for i, val := range *v.target {
		parts[i] = strconv.Itoa(val)
	}
	return strings.Join(parts, ",")
}

func (v *intSliceValue) Set(s string) error {
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("invalid status code %q: %w", p, err)
		}
		*v.target = append(*v.target, n)
	}
	return nil
}

func (v *intSliceValue) Type() string { return "ints" }

func formatFlag(f *pflag.Flag) string {
	var left string
	if f.Shorthand != "" {
		left = fmt.Sprintf("-%s, --%s", f.Shorthand, f.Name)
	} else {
		left = fmt.Sprintf("    --%s", f.Name)
	}

	typ := f.Value.Type()
	if typ != "bool" {
		left += " " + typ
	}

	// Pad to fixed column width for aligned descriptions.
	const col = 38
	for len(left) < col {
		left += " "
	}

	right := f.Usage
	def := f.DefValue
	if def != "" && def != "false" && def != "0" && def != "0s" && def != "[]" {
		right += fmt.Sprintf(" (default %s)", def)
	}

	return "   " + left + right
}

func helpBanner(ver string) string {
	if ver != "dev" && ver != "" && !strings.HasPrefix(ver, "v") {
		ver = "v" + ver
	}
	return fmt.Sprintf(`
     ___       __    __          __
    / _ \__ __/ /   / /    ___ _/ /_
   / // / / / __/  / _ \  / _ '/ __/
  /____/_/_/\__/  /_.__/  \_,_/\__/   %s

`, ver)
}
