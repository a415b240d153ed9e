package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/omarluq/authneg/internal/di"
)

const shutdownTimeout = 10 * time.Second

var (
	fetchMethod  string
	fetchData    string
	fetchHeaders []string
	fetchInclude bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <url>",
	Short: "Send a request, answering authentication challenges",
	Long: `Send one HTTP request through the negotiating transport and print the
response body. Challenges from the server or proxy are answered with the
configured credentials. Exits non-zero on a 4xx or 5xx response.`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringVarP(&fetchMethod, "method", "X", http.MethodGet, "request method")
	fetchCmd.Flags().StringVarP(&fetchData, "data", "d", "", "request body")
	fetchCmd.Flags().StringArrayVarP(&fetchHeaders, "header", "H", nil, `extra header, "Name: value"`)
	fetchCmd.Flags().BoolVarP(&fetchInclude, "include", "i", false, "print status line and response headers")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) (err error) {
	container, err := di.NewContainer(resolveConfigPath())
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if shutdownErr := container.ShutdownWithContext(ctx); shutdownErr != nil && err == nil {
			err = shutdownErr
		}
	}()

	svc, err := di.Invoke[*di.TransportService](container)
	if err != nil {
		return err
	}

	req, err := newFetchRequest(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	resp, err := svc.Transport.Client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	out := cmd.OutOrStdout()
	if fetchInclude {
		writeHead(out, resp)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("server responded %s", resp.Status)
	}
	return nil
}

func newFetchRequest(ctx context.Context, target string) (*http.Request, error) {
	var body io.Reader = http.NoBody
	if fetchData != "" {
		body = strings.NewReader(fetchData)
	}
	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(fetchMethod), target, body)
	if err != nil {
		return nil, err
	}
	for _, h := range fetchHeaders {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid header %q, want \"Name: value\"", h)
		}
		req.Header.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}
	return req, nil
}

func writeHead(w io.Writer, resp *http.Response) {
	fmt.Fprintf(w, "%s %s\n", resp.Proto, resp.Status)
	names := lo.Keys(resp.Header)
	slices.Sort(names)
	for _, name := range names {
		for _, v := range resp.Header[name] {
			fmt.Fprintf(w, "%s: %s\n", name, v)
		}
	}
	fmt.Fprintln(w)
}
