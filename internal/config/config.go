// Package config loads the cluster inventory (elastic_servers.yml) and the
// small state file remembering the default cluster.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/SwissLife-OSS/escmd/internal/log"
	"gopkg.in/yaml.v3"
)

const (
	// EnvConfig overrides the location of the inventory file.
	EnvConfig = "ESCMD_CONFIG"

	// DefaultCluster is the name of the implicit localhost server.
	DefaultCluster = "default"

	stateFileName = "escmd.json"
)

// ErrUnknownCluster is returned for a server name not in the inventory.
var ErrUnknownCluster = errors.New("unknown cluster")

// Settings are defaults applied to every server.
type Settings struct {
	Hostname           string `yaml:"hostname"`
	Port               int    `yaml:"port"`
	UseSSL             *bool  `yaml:"use_ssl"`
	VerifyCerts        *bool  `yaml:"verify_certs"`
	ElasticUsername    string `yaml:"elastic_username"`
	ElasticPassword    string `yaml:"elastic_password"`
	SnapshotRepository string `yaml:"snapshot_repository"`
	MaxConcurrent      int    `yaml:"max_concurrent"`
}

// Server is one cluster entry of the inventory.
type Server struct {
	Name               string `yaml:"name"`
	Hostname           string `yaml:"hostname"`
	Hostname2          string `yaml:"hostname2"`
	Port               int    `yaml:"port"`
	UseSSL             *bool  `yaml:"use_ssl"`
	VerifyCerts        *bool  `yaml:"verify_certs"`
	ElasticUsername    string `yaml:"elastic_username"`
	ElasticPassword    string `yaml:"elastic_password"`
	ElasticPasswordRef string `yaml:"elastic_password_ref"`
	UseEnvPassword     bool   `yaml:"use_env_password"`
	Env                string `yaml:"env"`
	SnapshotRepository string `yaml:"snapshot_repository"`
}

// File is the parsed inventory.
type File struct {
	Settings      Settings                     `yaml:"settings"`
	Servers       []Server                     `yaml:"servers"`
	Passwords     map[string]map[string]string `yaml:"passwords"`
	ClusterGroups map[string][]string          `yaml:"cluster_groups"`
}

// Cluster is a server entry with all defaults applied and the password
// resolved.
type Cluster struct {
	Name               string   `json:"name"`
	Addresses          []string `json:"addresses"`
	Username           string   `json:"username,omitempty"`
	Password           string   `json:"-"`
	Insecure           bool     `json:"insecure"`
	SnapshotRepository string   `json:"snapshot_repository,omitempty"`
	MaxConcurrent      int      `json:"max_concurrent,omitempty"`
}

// Config is the loaded inventory together with the path of its state file.
type Config struct {
	Path      string
	StatePath string

	file    File
	servers map[string]Server
}

// DefaultPath returns $ESCMD_CONFIG or ~/.config/escmd/elastic_servers.yml.
func DefaultPath() string {
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return "elastic_servers.yml"
	}
	return filepath.Join(dir, "escmd", "elastic_servers.yml")
}

// Load reads the inventory at path. A missing file yields an inventory with
// only the default localhost server.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}

	cfg.Path = path
	cfg.StatePath = filepath.Join(filepath.Dir(path), stateFileName)

	return cfg, nil
}

// Parse parses inventory YAML. Server names are case-insensitive and must be
// unique.
func Parse(data []byte) (*Config, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}

	if len(f.Servers) == 0 {
		f.Servers = []Server{{Name: DefaultCluster, Hostname: "localhost", Port: 9200}}
	}

	servers := make(map[string]Server, len(f.Servers))
	for i, s := range f.Servers {
		name := strings.ToLower(strings.TrimSpace(s.Name))
		if name == "" {
			return nil, fmt.Errorf("server #%d has no name", i+1)
		}
		if _, ok := servers[name]; ok {
			return nil, fmt.Errorf("duplicate server %q", s.Name)
		}
		servers[name] = s
	}

	for group, members := range f.ClusterGroups {
		for _, m := range members {
			if _, ok := servers[strings.ToLower(m)]; !ok {
				return nil, fmt.Errorf("cluster group %q: %w %q", group, ErrUnknownCluster, m)
			}
		}
	}

	return &Config{file: f, servers: servers}, nil
}

// Names returns the server names in inventory order.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.file.Servers))
	for _, s := range c.file.Servers {
		names = append(names, strings.ToLower(s.Name))
	}
	return names
}

// Groups returns the cluster groups by name.
func (c *Config) Groups() map[string][]string {
	return c.file.ClusterGroups
}

// Settings returns the global defaults.
func (c *Config) Settings() Settings {
	return c.file.Settings
}

// Cluster resolves the server called name.
func (c *Config) Cluster(name string) (*Cluster, error) {
	s, ok := c.servers[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownCluster, name)
	}

	def := c.file.Settings

	scheme := "http"
	if boolOr(s.UseSSL, def.UseSSL, false) {
		scheme = "https"
	}

	port := firstNonZero(s.Port, def.Port, 9200)

	var addresses []string
	for _, host := range []string{firstNonEmpty(s.Hostname, def.Hostname, "localhost"), s.Hostname2} {
		if host == "" {
			continue
		}
		addr := scheme + "://" + host + ":" + strconv.Itoa(port)
		if !slices.Contains(addresses, addr) {
			addresses = append(addresses, addr)
		}
	}

	return &Cluster{
		Name:               strings.ToLower(s.Name),
		Addresses:          addresses,
		Username:           firstNonEmpty(s.ElasticUsername, def.ElasticUsername),
		Password:           c.password(s),
		Insecure:           scheme == "https" && !boolOr(s.VerifyCerts, def.VerifyCerts, false),
		SnapshotRepository: firstNonEmpty(s.SnapshotRepository, def.SnapshotRepository),
		MaxConcurrent:      def.MaxConcurrent,
	}, nil
}

// password resolves in order: elastic_password_ref, use_env_password,
// elastic_password, settings.elastic_password.
func (c *Config) password(s Server) string {
	if ref := s.ElasticPasswordRef; ref != "" {
		env, user, ok := strings.Cut(ref, ".")
		if ok {
			return c.file.Passwords[env][user]
		}
		log.Logger.Warn().Str("server", s.Name).Str("ref", ref).Msg("invalid password reference, expected env.user")
	}

	if s.UseEnvPassword && s.Env != "" && s.ElasticUsername != "" {
		if pw := c.file.Passwords[s.Env][s.ElasticUsername]; pw != "" {
			return pw
		}
		log.Logger.Warn().Str("server", s.Name).Str("env", s.Env).Str("user", s.ElasticUsername).Msg("no password found for user in environment")
	}

	if s.ElasticPassword != "" {
		return s.ElasticPassword
	}

	return c.file.Settings.ElasticPassword
}

type state struct {
	CurrentCluster string `json:"current_cluster"`
}

// DefaultCluster returns the cluster stored with SetDefaultCluster, or
// "default" if none was stored.
func (c *Config) DefaultCluster() (string, error) {
	data, err := os.ReadFile(c.StatePath)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultCluster, nil
	}
	if err != nil {
		return "", fmt.Errorf("read state file: %w", err)
	}

	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		return "", fmt.Errorf("decode state file %q: %w", c.StatePath, err)
	}
	if st.CurrentCluster == "" {
		return DefaultCluster, nil
	}
	return st.CurrentCluster, nil
}

// SetDefaultCluster stores name as the default cluster. name must be a known
// server.
func (c *Config) SetDefaultCluster(name string) error {
	if _, ok := c.servers[strings.ToLower(name)]; !ok {
		return fmt.Errorf("%w %q", ErrUnknownCluster, name)
	}

	data, err := json.MarshalIndent(state{CurrentCluster: strings.ToLower(name)}, "", "    ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(c.StatePath), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	return os.WriteFile(c.StatePath, append(data, '\n'), 0o644)
}

func boolOr(v, def *bool, fallback bool) bool {
	if v != nil {
		return *v
	}
	if def != nil {
		return *def
	}
	return fallback
}

func firstNonZero(v ...int) int {
	for _, i := range v {
		if i != 0 {
			return i
		}
	}
	return 0
}

func firstNonEmpty(v ...string) string {
	for _, s := range v {
		if s != "" {
			return s
		}
	}
	return ""
}
