package main

import (
	"context"
	"path/filepath"

	"github.com/SwissLife-OSS/escmd/internal/config"
	"github.com/SwissLife-OSS/escmd/internal/es"
	"github.com/SwissLife-OSS/escmd/internal/log"
	"github.com/urfave/cli/v3"
)

func configPath(cmd *cli.Command) string {
	if p := cmd.String("config"); p != "" {
		return p
	}
	return config.DefaultPath()
}

func loadConfig(cmd *cli.Command) (*config.Config, error) {
	return config.Load(configPath(cmd))
}

// journalPath returns --journal or history.db next to the inventory.
func journalPath(cmd *cli.Command) string {
	if p := cmd.String("journal"); p != "" {
		return p
	}
	return filepath.Join(filepath.Dir(configPath(cmd)), "history.db")
}

// selectCluster resolves the target cluster. --url bypasses the inventory,
// otherwise --location or the stored default cluster is looked up. Explicit
// credential flags win over the inventory.
func selectCluster(cmd *cli.Command) (*config.Cluster, error) {
	var cluster *config.Cluster

	if url := cmd.String("url"); url != "" {
		cluster = &config.Cluster{
			Name:      url,
			Addresses: splitList(url),
		}
	} else {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return nil, err
		}

		name := cmd.String("location")
		if name == "" {
			name, err = cfg.DefaultCluster()
			if err != nil {
				return nil, err
			}
		}

		cluster, err = cfg.Cluster(name)
		if err != nil {
			return nil, err
		}
	}

	if cmd.IsSet("username") {
		cluster.Username = cmd.String("username")
	}
	if cmd.IsSet("password") {
		cluster.Password = cmd.String("password")
	}
	if cmd.Bool("insecure") {
		cluster.Insecure = true
	}

	return cluster, nil
}

// connect creates a client for the selected cluster. No request is sent.
func connect(_ context.Context, cmd *cli.Command) (*es.Client, *config.Cluster, error) {
	cluster, err := selectCluster(cmd)
	if err != nil {
		return nil, nil, err
	}

	logger := log.WithComponent("cli").With().Str("cluster", cluster.Name).Logger()

	client, err := es.New(es.Config{
		Addresses: cluster.Addresses,
		Username:  cluster.Username,
		Password:  cluster.Password,
		Insecure:  cluster.Insecure,
		Log:       &logger,
	})
	if err != nil {
		return nil, nil, err
	}

	logger.Debug().Strs("addresses", cluster.Addresses).Msg("connecting")

	return client, cluster, nil
}
