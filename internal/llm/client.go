package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nkoval/sysward/internal/intent"
)

const systemPrompt = `You are a Linux system assistant that converts natural language requests into structured commands.

You MUST respond with ONLY valid JSON matching this exact schema:
{
    "command": {
        "action": "<action_type>",
        "target": "<target>",
        "parameters": null,
        "reason": "<brief explanation>"
    },
    "error": null,
    "cannot_process": false
}

Valid action types:
- "start_app": Start an application (target = app name like "firefox", "nautilus", "gedit")
- "kill_process": Kill a process (target = process name)
- "list_processes": List running processes (target = "all" or filter criteria)
- "restart_service": Restart a systemd service (target = service name without .service)
- "shell_query": Run allowed shell commands (target = command like "ps aux | grep python")

For shell_query, ONLY these commands are allowed: ps, pgrep, grep, top, htop, free, df, du, uptime, uname, cat, head, tail, ls, find, wc, sort, date, who, w

If you cannot process the request, respond with:
{
    "command": null,
    "error": "<explanation>",
    "cannot_process": true
}

CRITICAL RULES:
1. Output ONLY JSON - no markdown, no backticks, no explanations
2. Do NOT suggest dangerous commands (rm, sudo, chmod, etc.)
3. For starting apps, use the actual binary name (firefox, nautilus, gedit, etc.)
4. For services, use the service name without .service suffix

Examples:
User: "open firefox"
{"command": {"action": "start_app", "target": "firefox", "parameters": null, "reason": "Opening Firefox browser"}, "error": null, "cannot_process": false}

User: "show running processes"
{"command": {"action": "list_processes", "target": "all", "parameters": null, "reason": "Listing all processes"}, "error": null, "cannot_process": false}

User: "restart nginx"
{"command": {"action": "restart_service", "target": "nginx", "parameters": null, "reason": "Restarting nginx web server"}, "error": null, "cannot_process": false}

User: "find python processes"
{"command": {"action": "shell_query", "target": "ps aux | grep python", "parameters": null, "reason": "Finding Python processes"}, "error": null, "cannot_process": false}

User: "delete all files"
{"command": null, "error": "Cannot execute destructive operations like file deletion", "cannot_process": true}`

// Client calls an OpenAI-compatible chat completions endpoint to translate
// natural language requests into command envelopes.
type Client struct {
	apiURL string
	apiKey string
	model  string
	http   *http.Client
}

// New returns a client for the given endpoint. A non-positive timeout
// defaults to 30 seconds.
func New(apiURL, apiKey, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiURL: apiURL,
		apiKey: apiKey,
		model:  model,
		http:   &http.Client{Timeout: timeout},
	}
}

// Translate asks the model to convert a natural language request into a
// command envelope. A malformed model reply is retried once before giving up.
func (c *Client) Translate(ctx context.Context, request string) (*intent.Envelope, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		raw, err := c.ask(ctx, request)
		if err != nil {
			return nil, err
		}
		env, err := parseEnvelope(raw)
		if err != nil {
			lastErr = err
			continue
		}
		return env, nil
	}
	return nil, fmt.Errorf("model did not produce a valid envelope: %w", lastErr)
}

// ask sends one chat completion request and returns the message content.
func (c *Client) ask(ctx context.Context, userMsg string) (string, error) {
	messages := []map[string]string{
		{"role": "system", "content": systemPrompt},
		{"role": "user", "content": userMsg},
	}

	body, _ := json.Marshal(map[string]interface{}{
		"model":       c.model,
		"messages":    messages,
		"temperature": 0,
	})

	req, err := http.NewRequestWithContext(ctx, "POST", c.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != 200 {
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil || len(result.Choices) == 0 {
		return "", fmt.Errorf("empty response")
	}
	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

// parseEnvelope decodes the model reply, tolerating markdown fences and
// surrounding prose around the JSON object.
func parseEnvelope(raw string) (*intent.Envelope, error) {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	var env intent.Envelope
	if err := json.Unmarshal([]byte(cleaned), &env); err == nil {
		return &env, nil
	}

	// Fallback: extract the outermost brace span.
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start >= 0 && end > start {
		var inner intent.Envelope
		if err := json.Unmarshal([]byte(cleaned[start:end+1]), &inner); err == nil {
			return &inner, nil
		}
	}
	return nil, fmt.Errorf("model output is not valid JSON: %q", raw)
}
