package escape

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/StanzaFlow/StanzaFlow/internal/ir"
)

// Request describes one pattern the oracle should synthesize code for.
type Request struct {
	PatternID string
	Target    string
	IRPath    string
	Reason    string
	Fragment  ir.Object
}

// Oracle synthesizes target-runtime code for an unsupported pattern.
type Oracle interface {
	Synthesize(ctx context.Context, req Request) (string, error)
}

// Oracle error kinds.
const (
	OracleUnavailable = "unavailable"  // transport failure or non-2xx status
	OracleTimeout     = "timeout"      // request exceeded its deadline
	OracleBadResponse = "bad_response" // response body unusable
)

// OracleError reports a failed synthesis attempt. Any oracle error counts
// as a rejection for the pattern; the compile itself never fails on it.
type OracleError struct {
	Kind    string
	Message string
}

func (e *OracleError) Error() string {
	return fmt.Sprintf("oracle %s: %s", e.Kind, e.Message)
}

// HTTPOracle posts synthesis requests to a completion endpoint.
type HTTPOracle struct {
	URL    string
	Model  string
	APIKey string
	Client *http.Client
}

// NewHTTPOracle builds an oracle client with the given endpoint and model.
func NewHTTPOracle(url, model, apiKey string, timeout time.Duration) *HTTPOracle {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPOracle{
		URL:    url,
		Model:  model,
		APIKey: apiKey,
		Client: &http.Client{Timeout: timeout},
	}
}

type oracleRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type oracleResponse struct {
	Code string `json:"code"`
}

func (o *HTTPOracle) Synthesize(ctx context.Context, req Request) (string, error) {
	prompt, err := BuildPrompt(req)
	if err != nil {
		return "", &OracleError{Kind: OracleBadResponse, Message: err.Error()}
	}

	body, err := json.Marshal(oracleRequest{Model: o.Model, Prompt: prompt})
	if err != nil {
		return "", &OracleError{Kind: OracleBadResponse, Message: err.Error()}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.URL, bytes.NewReader(body))
	if err != nil {
		return "", &OracleError{Kind: OracleUnavailable, Message: err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if o.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+o.APIKey)
	}

	resp, err := o.Client.Do(httpReq)
	if err != nil {
		kind := OracleUnavailable
		if ctx.Err() == context.DeadlineExceeded {
			kind = OracleTimeout
		}
		return "", &OracleError{Kind: kind, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &OracleError{Kind: OracleUnavailable, Message: fmt.Sprintf("status %d", resp.StatusCode)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &OracleError{Kind: OracleBadResponse, Message: err.Error()}
	}
	var parsed oracleResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", &OracleError{Kind: OracleBadResponse, Message: err.Error()}
	}
	if strings.TrimSpace(parsed.Code) == "" {
		return "", &OracleError{Kind: OracleBadResponse, Message: "empty code in response"}
	}
	return parsed.Code, nil
}

// BuildPrompt renders the synthesis prompt from a request. The IR fragment
// goes in canonically serialized, so the same pattern always produces the
// same prompt.
func BuildPrompt(req Request) (string, error) {
	fragment, err := ir.MarshalCanonical(req.Fragment)
	if err != nil {
		return "", fmt.Errorf("serialize fragment: %w", err)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Write a self-contained %s code fragment implementing the workflow construct below.\n", req.Target)
	fmt.Fprintf(&b, "It will be spliced at statement position inside a generated program.\n")
	fmt.Fprintf(&b, "Use only the standard library. Do not execute commands, open sockets or load code.\n\n")
	fmt.Fprintf(&b, "Construct: %s\n", req.Reason)
	fmt.Fprintf(&b, "Location: %s\n", req.IRPath)
	fmt.Fprintf(&b, "Workflow fragment: %s\n", fragment)
	return b.String(), nil
}
