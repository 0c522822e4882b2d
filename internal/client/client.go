// Package client is the phone book client application: it sends the fixed
// allPersons query to the server and decodes the list of persons returned.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const (
	personsQuery            = `query AllPersons { allPersons { name phone id } }`
	personsWithAddressQuery = `query AllPersons { allPersons { name phone id address { street city } } }`
)

type (
	// Request is the body of a GraphQL POST request
	Request struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName,omitempty"`
		Variables     map[string]interface{} `json:"variables,omitempty"`
	}

	// Error is one entry of the "errors" list of a GraphQL response
	Error struct {
		Message    string                 `json:"message"`
		Path       []interface{}          `json:"path,omitempty"`
		Extensions map[string]interface{} `json:"extensions,omitempty"`
	}

	// ResponseError is returned by Do when the server reports one or more GraphQL errors
	ResponseError []Error

	// Address is the address of a Person (only fetched by the richer query)
	Address struct {
		Street string `json:"street"`
		City   string `json:"city"`
	}

	// Person is a contact as returned by the allPersons query
	Person struct {
		Name    string   `json:"name"`
		Phone   *string  `json:"phone"`
		ID      string   `json:"id"`
		Address *Address `json:"address,omitempty"`
	}
)

func (e ResponseError) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Message)
	}
	return "graphql: " + strings.Join(msgs, "; ")
}

// Client sends GraphQL requests to a phone book server
type Client struct {
	url  string
	http *http.Client
}

// New creates a client of the server at url.  If httpClient is nil http.DefaultClient is used.
func New(url string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{url: url, http: httpClient}
}

// Do posts req to the server and decodes the "data" of the response into data.
// Any GraphQL errors in the response are returned as a ResponseError.
func (c *Client) Do(ctx context.Context, req Request, data interface{}) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("posting to %s: %w", c.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("posting to %s: unexpected status %s", c.url, resp.Status)
	}

	var result struct {
		Data   json.RawMessage `json:"data"`
		Errors ResponseError   `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if len(result.Errors) > 0 {
		return result.Errors
	}
	if data != nil && len(result.Data) > 0 {
		if err := json.Unmarshal(result.Data, data); err != nil {
			return fmt.Errorf("decoding data: %w", err)
		}
	}
	return nil
}

// AllPersons runs the fixed allPersons query, also fetching addresses if withAddress is true
func (c *Client) AllPersons(ctx context.Context, withAddress bool) ([]Person, error) {
	query := personsQuery
	if withAddress {
		query = personsWithAddressQuery
	}
	var data struct {
		AllPersons []Person `json:"allPersons"`
	}
	if err := c.Do(ctx, Request{Query: query, OperationName: "AllPersons"}, &data); err != nil {
		return nil, err
	}
	return data.AllPersons, nil
}
