// Package elastic owns the Elasticsearch connection shared by the source and
// sink of one run.
package elastic

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/cyra/logpipe/internal/errkind"
	"github.com/cyra/logpipe/internal/logging"
)

// Settings locate and authenticate against a cluster.
type Settings struct {
	Host           string
	User           string
	Password       string
	CertValidation bool
}

// Response is a raw cluster reply.
type Response struct {
	Status int
	Body   []byte
}

// IsError reports a non-2xx status.
func (r Response) IsError() bool {
	return r.Status < 200 || r.Status > 299
}

// Client issues the few API calls the pipeline needs.
type Client struct {
	es     *elasticsearch.Client
	logger *logging.Logger
}

// NewClient builds a client from settings. Proxies from the environment are
// never used; certificate validation is off unless requested.
func NewClient(s Settings, logger *logging.Logger) (*Client, error) {
	if s.Host == "" {
		return nil, errkind.Errorf(errkind.Config, "create elastic client", "host is required")
	}
	if _, err := url.ParseRequestURI(s.Host); err != nil {
		return nil, errkind.E(errkind.Config, "create elastic client", err)
	}

	transport := &http.Transport{
		Proxy: nil,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: !s.CertValidation, //nolint:gosec // opt-in via ELASTIC_CERT_VALIDATION
		},
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{s.Host},
		Username:  s.User,
		Password:  s.Password,
		Transport: transport,
	})
	if err != nil {
		return nil, errkind.E(errkind.Config, "create elastic client", err)
	}
	logger.Debugf("elastic client created for %s (cert validation=%t)", s.Host, s.CertValidation)
	return &Client{es: es, logger: logger}, nil
}

// Search runs one _search request against index.
func (c *Client) Search(ctx context.Context, index string, body []byte, size int) (Response, error) {
	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(index),
		c.es.Search.WithBody(bytes.NewReader(body)),
		c.es.Search.WithSize(size),
	)
	return readResponse("elastic search", res, err)
}

// Bulk sends one newline-delimited _bulk body to index.
func (c *Client) Bulk(ctx context.Context, index string, body []byte) (Response, error) {
	res, err := c.es.Bulk(
		bytes.NewReader(body),
		c.es.Bulk.WithContext(ctx),
		c.es.Bulk.WithIndex(index),
	)
	return readResponse("elastic bulk", res, err)
}

// DeleteByQuery runs one _delete_by_query request against index.
func (c *Client) DeleteByQuery(ctx context.Context, index string, body []byte) (Response, error) {
	res, err := c.es.DeleteByQuery(
		[]string{index},
		bytes.NewReader(body),
		c.es.DeleteByQuery.WithContext(ctx),
	)
	return readResponse("elastic delete by query", res, err)
}

func readResponse(op string, res *esapi.Response, err error) (Response, error) {
	if err != nil {
		return Response{}, errkind.E(errkind.Network, op, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return Response{}, errkind.E(errkind.Network, op, err)
	}
	return Response{Status: res.StatusCode, Body: body}, nil
}

// Conn builds its Client on first use and hands the same one to every caller.
type Conn struct {
	resolve func() (Settings, error)
	logger  *logging.Logger

	once   sync.Once
	client *Client
	err    error
}

// NewConn returns a Conn that resolves settings lazily.
func NewConn(resolve func() (Settings, error), logger *logging.Logger) *Conn {
	return &Conn{resolve: resolve, logger: logger}
}

// Client returns the shared client, constructing it on the first call.
func (c *Conn) Client() (*Client, error) {
	c.once.Do(func() {
		s, err := c.resolve()
		if err != nil {
			c.err = err
			return
		}
		c.client, c.err = NewClient(s, c.logger)
	})
	return c.client, c.err
}
