package qdrant

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/multiquery/index"
	"github.com/qdrant/go-client/qdrant"
)

// Distance names accepted in configuration.
const (
	DistanceCosine    = "Cosine"
	DistanceEuclidean = "Euclidean"
	DistanceDot       = "Dot Product"
	DistanceManhattan = "Manhattan"
)

// Config describes how to reach a Qdrant collection.
type Config struct {
	// CollectionName is the collection to read and write. Required.
	CollectionName string `yaml:"collection_name"`

	// Host is the server hostname. Default: "localhost"
	Host string `yaml:"host"`

	// Port is the REST port. Default: 6333
	Port int `yaml:"port"`

	// GRPCPort is the gRPC port used for collection management. Default: 6334
	GRPCPort int `yaml:"grpc_port"`

	// APIKey authenticates both REST and gRPC calls.
	APIKey string `yaml:"api_key"`

	// Prefix is an optional path prefix in front of the REST API.
	Prefix string `yaml:"prefix"`

	// Timeout bounds every request. Zero means no timeout beyond the caller's context.
	Timeout time.Duration `yaml:"timeout"`

	// URL overrides Host, Port, Prefix and HTTPS for REST calls.
	URL string `yaml:"url"`

	// HTTPS selects https and TLS for gRPC.
	HTTPS bool `yaml:"https"`

	// Distance is one of "Cosine", "Euclidean", "Dot Product" or "Manhattan". Default: "Cosine"
	Distance string `yaml:"distance"`

	// ContentPayloadKey is the payload field holding document content. Default: "page_content"
	ContentPayloadKey string `yaml:"content_payload_key"`

	// MetadataPayloadKey is the payload field holding document metadata. Default: "metadata"
	MetadataPayloadKey string `yaml:"metadata_payload_key"`

	// VectorSize is the embedding dimension for new collections. Zero probes the embedder.
	VectorSize int `yaml:"vector_size"`
}

// DefaultConfig returns a Config for a local Qdrant server.
func DefaultConfig() Config {
	cfg := Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills unset fields with their defaults.
func (c *Config) ApplyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6333
	}
	if c.GRPCPort == 0 {
		c.GRPCPort = 6334
	}
	if c.Distance == "" {
		c.Distance = DistanceCosine
	}
	if c.ContentPayloadKey == "" {
		c.ContentPayloadKey = "page_content"
	}
	if c.MetadataPayloadKey == "" {
		c.MetadataPayloadKey = "metadata"
	}
}

// Validate checks the configuration. Errors wrap index.ErrInvalidVectorStore.
func (c Config) Validate() error {
	if strings.TrimSpace(c.CollectionName) == "" {
		return fmt.Errorf("%w: collection name is required", index.ErrInvalidVectorStore)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("%w: invalid port %d", index.ErrInvalidVectorStore, c.Port)
	}
	if c.GRPCPort < 0 || c.GRPCPort > 65535 {
		return fmt.Errorf("%w: invalid grpc port %d", index.ErrInvalidVectorStore, c.GRPCPort)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: negative timeout", index.ErrInvalidVectorStore)
	}
	if c.VectorSize < 0 {
		return fmt.Errorf("%w: negative vector size", index.ErrInvalidVectorStore)
	}
	if c.ContentPayloadKey != "" && c.ContentPayloadKey == c.MetadataPayloadKey {
		return fmt.Errorf("%w: content and metadata payload keys must differ", index.ErrInvalidVectorStore)
	}
	if _, err := ParseDistance(c.Distance); err != nil {
		return err
	}
	if _, err := c.RESTURL(); err != nil {
		return err
	}
	return nil
}

// RESTURL returns the base URL of the REST API.
func (c Config) RESTURL() (url.URL, error) {
	if c.URL != "" {
		u, err := url.Parse(c.URL)
		if err != nil {
			return url.URL{}, fmt.Errorf("%w: %w", index.ErrInvalidVectorStore, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return url.URL{}, fmt.Errorf("%w: url %q needs a scheme and host", index.ErrInvalidVectorStore, c.URL)
		}
		return *u, nil
	}

	scheme := "http"
	if c.HTTPS {
		scheme = "https"
	}
	u := url.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
	}
	if prefix := strings.Trim(c.Prefix, "/"); prefix != "" {
		u.Path = "/" + prefix
	}
	return u, nil
}

// GRPCHost returns the host used for gRPC connections.
func (c Config) GRPCHost() string {
	if c.URL != "" {
		if u, err := url.Parse(c.URL); err == nil && u.Hostname() != "" {
			return u.Hostname()
		}
	}
	return c.Host
}

// ParseDistance maps a configured distance name to the Qdrant enum.
func ParseDistance(name string) (qdrant.Distance, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "cosine":
		return qdrant.Distance_Cosine, nil
	case "euclidean", "euclid":
		return qdrant.Distance_Euclid, nil
	case "dot product", "dot":
		return qdrant.Distance_Dot, nil
	case "manhattan":
		return qdrant.Distance_Manhattan, nil
	default:
		return qdrant.Distance_UnknownDistance, fmt.Errorf("%w: unknown distance %q", index.ErrInvalidVectorStore, name)
	}
}
