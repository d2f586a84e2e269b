package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"
)

func listLocations(_ context.Context, cmd *cli.Command) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	current, err := cfg.DefaultCluster()
	if err != nil {
		return err
	}

	type location struct {
		Name      string   `json:"name"`
		Addresses []string `json:"addresses"`
		Username  string   `json:"username,omitempty"`
		Default   bool     `json:"default"`
	}

	locations := make([]location, 0, len(cfg.Names()))
	for _, name := range cfg.Names() {
		cluster, err := cfg.Cluster(name)
		if err != nil {
			return err
		}
		locations = append(locations, location{
			Name:      cluster.Name,
			Addresses: cluster.Addresses,
			Username:  cluster.Username,
			Default:   strings.EqualFold(cluster.Name, current),
		})
	}

	w := stdout(cmd)
	if format == formatJSON {
		return writeJSON(w, map[string]any{
			"config":         cfg.Path,
			"locations":      locations,
			"cluster_groups": cfg.Groups(),
		})
	}

	data := make([][]string, 0, len(locations))
	for _, l := range locations {
		mark := ""
		if l.Default {
			mark = styleOK.Render("*")
		}
		data = append(data, []string{mark, l.Name, strings.Join(l.Addresses, ", "), l.Username})
	}
	if err := renderTable(w, []string{"", "Name", "Addresses", "Username"}, data); err != nil {
		return err
	}

	if len(cfg.Groups()) == 0 {
		return nil
	}

	groups := make([][]string, 0, len(cfg.Groups()))
	for name, members := range mapOrderedByKey(cfg.Groups()) {
		groups = append(groups, []string{name, strings.Join(members, ", ")})
	}

	return renderTable(w, []string{"Cluster group", "Members"}, groups)
}

func getDefault(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	current, err := cfg.DefaultCluster()
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(stdout(cmd), current)
	return err
}

func setDefault(_ context.Context, cmd *cli.Command) error {
	name := cmd.Args().First()
	if name == "" {
		return fmt.Errorf("cluster name is required")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.SetDefaultCluster(name); err != nil {
		return err
	}

	return printDone(stdout(cmd), fmt.Sprintf("Current cluster set to: %s", strings.ToLower(name)))
}
