package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const inventory = `
settings:
  elastic_username: reader
  elastic_password: fallback
  snapshot_repository: backups
  max_concurrent: 8
servers:
  - name: Prod
    hostname: es-prod-1
    hostname2: es-prod-2
    port: 9243
    use_ssl: true
    elastic_username: admin
    elastic_password_ref: prod.admin
  - name: staging
    hostname: es-staging
    use_ssl: true
    verify_certs: true
    elastic_username: admin
    use_env_password: true
    env: staging
    snapshot_repository: backups-staging
  - name: dev
    hostname: localhost
    elastic_password: devpass
  - name: lab
    use_env_password: true
    env: missing
passwords:
  prod:
    admin: prod-secret
  staging:
    admin: staging-secret
cluster_groups:
  eu: [prod, staging]
`

func TestCluster(t *testing.T) {
	cfg, err := Parse([]byte(inventory))
	require.NoError(t, err)

	tests := []struct {
		name string
		want Cluster
	}{
		{
			name: "PROD",
			want: Cluster{
				Name:               "prod",
				Addresses:          []string{"https://es-prod-1:9243", "https://es-prod-2:9243"},
				Username:           "admin",
				Password:           "prod-secret",
				Insecure:           true,
				SnapshotRepository: "backups",
				MaxConcurrent:      8,
			},
		},
		{
			name: "staging",
			want: Cluster{
				Name:               "staging",
				Addresses:          []string{"https://es-staging:9200"},
				Username:           "admin",
				Password:           "staging-secret",
				SnapshotRepository: "backups-staging",
				MaxConcurrent:      8,
			},
		},
		{
			name: "dev",
			want: Cluster{
				Name:               "dev",
				Addresses:          []string{"http://localhost:9200"},
				Username:           "reader",
				Password:           "devpass",
				SnapshotRepository: "backups",
				MaxConcurrent:      8,
			},
		},
		{
			name: "lab",
			want: Cluster{
				Name:               "lab",
				Addresses:          []string{"http://localhost:9200"},
				Username:           "reader",
				Password:           "fallback",
				SnapshotRepository: "backups",
				MaxConcurrent:      8,
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := cfg.Cluster(tc.name)
			require.NoError(t, err)
			require.Equal(t, tc.want, *got)
		})
	}
}

func TestClusterUnknown(t *testing.T) {
	cfg, err := Parse([]byte(inventory))
	require.NoError(t, err)

	_, err = cfg.Cluster("nope")
	require.ErrorIs(t, err, ErrUnknownCluster)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{name: "empty", data: ""},
		{name: "invalid yaml", data: "servers: [", wantErr: "parsing YAML"},
		{name: "no name", data: "servers:\n  - hostname: a\n", wantErr: "has no name"},
		{name: "duplicate", data: "servers:\n  - name: a\n  - name: A\n", wantErr: "duplicate server"},
		{name: "unknown group member", data: "servers:\n  - name: a\ncluster_groups:\n  g: [b]\n", wantErr: "unknown cluster"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.data))
			if tc.wantErr != "" {
				require.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "elastic_servers.yml"))
	require.NoError(t, err)
	require.Equal(t, []string{DefaultCluster}, cfg.Names())

	c, err := cfg.Cluster(DefaultCluster)
	require.NoError(t, err)
	require.Equal(t, []string{"http://localhost:9200"}, c.Addresses)
}

func TestDefaultClusterState(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "elastic_servers.yml")
	require.NoError(t, os.WriteFile(path, []byte(inventory), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "escmd.json"), cfg.StatePath)

	name, err := cfg.DefaultCluster()
	require.NoError(t, err)
	require.Equal(t, DefaultCluster, name)

	require.ErrorIs(t, cfg.SetDefaultCluster("unknown"), ErrUnknownCluster)
	require.NoError(t, cfg.SetDefaultCluster("Staging"))

	name, err = cfg.DefaultCluster()
	require.NoError(t, err)
	require.Equal(t, "staging", name)

	data, err := os.ReadFile(cfg.StatePath)
	require.NoError(t, err)
	require.JSONEq(t, `{"current_cluster": "staging"}`, string(data))
}

func TestDefaultPathFromEnv(t *testing.T) {
	t.Setenv(EnvConfig, "/etc/escmd/servers.yml")
	require.Equal(t, "/etc/escmd/servers.yml", DefaultPath())
}
