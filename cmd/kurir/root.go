package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ambiyansyah-risyal/kurir"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	method       string
	headers      []string
	data         string
	form         []string
	query        string
	timeout      time.Duration
	retries      int
	configFile   string
	envFile      string
	baseURL      string
	include      bool
	verbose      bool
	maxRedirects int
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "kurir [flags] <url>",
		Short: "Send an HTTP request and print the response",
		Long: `kurir sends one HTTP request through the kurir client engine.

Examples:
  kurir https://api.example.com/users
  kurir -X POST -H 'Content-Type: application/json' -d '{"name":"ada"}' https://api.example.com/users
  kurir -F name=ada -F avatar=@me.png https://api.example.com/upload
  kurir --query '0.name' https://api.example.com/users`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := runRequest(cmd.Context(), opts, args[0], out, errOut)
			if err != nil {
				red := color.New(color.FgRed).SprintFunc()
				fmt.Fprintln(errOut, red("error:"), err)
			}
			return err
		},
	}
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	f := cmd.Flags()
	f.StringVarP(&opts.method, "request", "X", "GET", "HTTP method")
	f.StringArrayVarP(&opts.headers, "header", "H", nil, "request header 'Name: value' (repeatable)")
	f.StringVarP(&opts.data, "data", "d", "", "request body, or @file to read it from a file")
	f.StringArrayVarP(&opts.form, "form", "F", nil, "multipart field name=value or name=@file (repeatable)")
	f.StringVarP(&opts.query, "query", "q", "", "print only the gjson path from the JSON response")
	f.DurationVar(&opts.timeout, "timeout", 0, "request timeout, e.g. 5s")
	f.IntVar(&opts.retries, "retries", 0, "retry transient failures up to N times")
	f.StringVar(&opts.configFile, "config", "", "config file (yaml, json or toml)")
	f.StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading KURIR_* variables")
	f.StringVar(&opts.baseURL, "base-url", "", "base URL prepended to relative URLs")
	f.BoolVarP(&opts.include, "include", "i", false, "print the status line and response headers")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "log request lifecycle to stderr")
	f.IntVar(&opts.maxRedirects, "max-redirects", -1, "maximum redirects to follow (0 disables)")

	cmd.AddCommand(newVersionCmd())
	return cmd
}

func runRequest(ctx context.Context, opts *rootOptions, url string, out, errOut io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.envFile != "" {
		if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return &exitError{code: ExitConfigError, err: fmt.Errorf("load %s: %w", opts.envFile, err)}
		}
	}

	fc, err := kurir.LoadConfig(opts.configFile)
	if err != nil {
		return &exitError{code: ExitConfigError, err: err}
	}

	clientOpts := fc.Options()
	if opts.baseURL != "" {
		clientOpts = append(clientOpts, kurir.WithBaseURL(opts.baseURL))
	}
	if opts.timeout > 0 {
		clientOpts = append(clientOpts, kurir.WithTimeout(opts.timeout))
	}
	if opts.retries > 0 {
		clientOpts = append(clientOpts, kurir.WithMaxRetries(opts.retries))
	}
	if opts.verbose {
		clientOpts = append(clientOpts,
			kurir.WithLogger(kurir.NewConsoleLogger(errOut, zerolog.DebugLevel)),
			kurir.WithDebug(),
		)
	}

	client := kurir.New(clientOpts...)
	if !client.IsValid() {
		return &exitError{code: ExitConfigError, err: client.ValidationError()}
	}

	cfg, err := buildRequest(opts, url)
	if err != nil {
		return &exitError{code: ExitUsageError, err: err}
	}

	resp, err := client.Request(ctx, cfg)
	if err != nil {
		return &exitError{code: exitCodeFor(err), err: err}
	}

	if opts.include {
		printHead(out, resp)
	}
	if err := printBody(out, resp, opts.query); err != nil {
		return &exitError{code: ExitUsageError, err: err}
	}
	if resp.Status >= 400 {
		return &exitError{code: ExitHTTPError, err: fmt.Errorf("server responded %d %s", resp.Status, resp.StatusText)}
	}
	return nil
}

func buildRequest(opts *rootOptions, url string) (*kurir.Config, error) {
	cfg := &kurir.Config{
		URL:            url,
		Method:         opts.method,
		Headers:        kurir.NewHeaders(),
		ResponseType:   kurir.ResponseTypeText,
		ValidateStatus: kurir.AcceptAnyStatus,
	}
	if opts.maxRedirects >= 0 {
		n := opts.maxRedirects
		cfg.MaxRedirects = &n
	}

	for _, h := range opts.headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok {
			return nil, fmt.Errorf("invalid header %q, want 'Name: value'", h)
		}
		cfg.Headers.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	switch {
	case opts.data != "" && len(opts.form) > 0:
		return nil, errors.New("--data and --form cannot be combined")
	case opts.data != "":
		body, err := readArg(opts.data)
		if err != nil {
			return nil, err
		}
		cfg.Data = body
	case len(opts.form) > 0:
		fd := kurir.NewFormData()
		for _, field := range opts.form {
			name, value, ok := strings.Cut(field, "=")
			if !ok {
				return nil, fmt.Errorf("invalid form field %q, want name=value", field)
			}
			if path, isFile := strings.CutPrefix(value, "@"); isFile {
				b, err := os.ReadFile(path)
				if err != nil {
					return nil, err
				}
				fd.AppendFile(name, &kurir.FormFile{Filename: filepath.Base(path), Data: b})
				continue
			}
			fd.Append(name, value)
		}
		cfg.Data = fd
	}

	if cfg.Data != nil && strings.EqualFold(opts.method, "GET") {
		cfg.Method = "POST"
	}
	return cfg, nil
}

func readArg(v string) ([]byte, error) {
	if path, ok := strings.CutPrefix(v, "@"); ok {
		return os.ReadFile(path)
	}
	return []byte(v), nil
}

func exitCodeFor(err error) int {
	var e *kurir.Error
	if !errors.As(err, &e) {
		return ExitNetworkError
	}
	switch e.Code {
	case kurir.CodeBadOption, kurir.CodeBadOptionValue, kurir.CodeInvalidURL, kurir.CodeNotSupport:
		return ExitConfigError
	case kurir.CodeBadRequest, kurir.CodeBadResponse:
		if e.Status > 0 {
			return ExitHTTPError
		}
	}
	return ExitNetworkError
}

func printHead(out io.Writer, resp *kurir.Response) {
	var paint func(a ...interface{}) string
	switch {
	case resp.StatusCode().IsSuccess():
		paint = color.New(color.FgGreen, color.Bold).SprintFunc()
	case resp.StatusCode().IsRedirect():
		paint = color.New(color.FgYellow, color.Bold).SprintFunc()
	default:
		paint = color.New(color.FgRed, color.Bold).SprintFunc()
	}
	fmt.Fprintln(out, paint(fmt.Sprintf("%d %s", resp.Status, resp.StatusText)))
	cyan := color.New(color.FgCyan).SprintFunc()
	for _, line := range strings.Split(resp.Headers.String(), "\r\n") {
		if name, value, ok := strings.Cut(line, ": "); ok {
			fmt.Fprintf(out, "%s: %s\n", cyan(name), value)
		}
	}
	fmt.Fprintln(out)
}

func printBody(out io.Writer, resp *kurir.Response, query string) error {
	if query == "" {
		fmt.Fprint(out, resp.Text())
		if len(resp.Raw) > 0 && !strings.HasSuffix(resp.Text(), "\n") {
			fmt.Fprintln(out)
		}
		return nil
	}
	result := resp.JSON(query)
	if !result.Exists() {
		return fmt.Errorf("query %q matched nothing", query)
	}
	fmt.Fprintln(out, result.String())
	return nil
}
