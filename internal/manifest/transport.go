package manifest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
)

// headerTransport injects a fixed header set into every request.
type headerTransport struct {
	headers map[string]string
	base    http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.base.RoundTrip(req)
}

// LoadHeaders loads custom HTTP headers from a JSON file mapping header
// names to values. An empty path yields no headers.
func LoadHeaders(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: failed to read headers file: %w", err)
	}

	var headers map[string]string
	if err := json.Unmarshal(data, &headers); err != nil {
		return nil, fmt.Errorf("manifest: failed to parse headers file: %w", err)
	}

	return headers, nil
}
