package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/boshu2/macc/internal/catalog"
	"github.com/boshu2/macc/internal/macc"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect and edit the project's skills and mcp catalog layers",
}

var catalogSkillsCmd = &cobra.Command{Use: "skills", Short: "Manage the skills catalog layer"}
var catalogMcpCmd = &cobra.Command{Use: "mcp", Short: "Manage the mcp catalog layer"}
var catalogAgentsCmd = &cobra.Command{Use: "agents", Short: "List known agent ids"}

var catalogAgentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the builtin agent ids",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, a := range catalog.BuiltinAgents() {
			outf("%s  %s  %s", a.ID, a.Name, a.Description)
		}
		return nil
	},
}

var (
	catalogSourceKind string
	catalogSourceURL  string
	catalogSourceRef  string
	catalogSubpath    string
	catalogName       string
	catalogDesc       string
	catalogTagsCSV    string
)

func addCatalogFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&catalogSourceKind, "source-kind", "git", "source kind (git, http, local)")
	cmd.Flags().StringVar(&catalogSourceURL, "source-url", "", "source URL or local path")
	cmd.Flags().StringVar(&catalogSourceRef, "source-ref", "", "source reference (branch/tag/commit)")
	cmd.Flags().StringVar(&catalogSubpath, "subpath", "", "subpath within the source this entry selects")
	cmd.Flags().StringVar(&catalogName, "name", "", "human-readable entry name")
	cmd.Flags().StringVar(&catalogDesc, "description", "", "entry description")
	cmd.Flags().StringVar(&catalogTagsCSV, "tags", "", "comma-separated tags")
}

func tagsFromCSV(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(csv, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func entrySource() catalog.Source {
	src := catalog.Source{Kind: catalog.Kind(catalogSourceKind), URL: catalogSourceURL, Reference: catalogSourceRef}
	if catalogSubpath != "" {
		src.Subpaths = []string{catalogSubpath}
	}
	return src
}

var catalogSkillsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the project's effective skills catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		pp, err := resolveProjectPaths()
		if err != nil {
			return err
		}
		cat, err := catalog.LoadSkillsCatalogWithLocal(mustUserCatalogDir(), pp.CatalogDir(), pp.SkillsDir())
		if err != nil {
			return err
		}
		cat = catalog.SeedBuiltinSkills(cat)
		for _, e := range cat.Entries {
			outf("%s  %s  %v", e.ID, e.Name, e.Tags)
		}
		return nil
	},
}

var catalogSkillsSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the effective skills catalog by id/name/description/tag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pp, err := resolveProjectPaths()
		if err != nil {
			return err
		}
		cat, err := catalog.LoadSkillsCatalogWithLocal(mustUserCatalogDir(), pp.CatalogDir(), pp.SkillsDir())
		if err != nil {
			return err
		}
		cat = catalog.SeedBuiltinSkills(cat)
		q := strings.ToLower(args[0])
		for _, e := range cat.Entries {
			if skillEntryMatches(e, q) {
				outf("%s  %s  %s", e.ID, e.Name, e.Description)
			}
		}
		return nil
	},
}

func skillEntryMatches(e catalog.SkillEntry, q string) bool {
	if strings.Contains(strings.ToLower(e.ID), q) || strings.Contains(strings.ToLower(e.Name), q) || strings.Contains(strings.ToLower(e.Description), q) {
		return true
	}
	for _, t := range e.Tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}

var catalogSkillsAddCmd = &cobra.Command{
	Use:   "add <id>",
	Short: "Add a skill entry to the project catalog layer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pp, err := resolveProjectPaths()
		if err != nil {
			return err
		}
		cat, err := catalog.LoadSkillsLayer(pp.SkillsCatalogFile())
		if err != nil {
			return err
		}
		id := args[0]
		for _, e := range cat.Entries {
			if e.ID == id {
				return macc.Validationf("skill %q already exists in the project catalog", id)
			}
		}
		cat.Entries = append(cat.Entries, catalog.SkillEntry{
			ID: id, Name: catalogName, Description: catalogDesc, Tags: tagsFromCSV(catalogTagsCSV),
			Selector: catalog.Selector{Subpath: catalogSubpath}, Source: entrySource(),
		})
		if err := catalog.SaveSkillsCatalog(pp.SkillsCatalogFile(), cat); err != nil {
			return err
		}
		outf("added skill %q", id)
		return nil
	},
}

var catalogSkillsRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a skill entry from the project catalog layer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pp, err := resolveProjectPaths()
		if err != nil {
			return err
		}
		cat, err := catalog.LoadSkillsLayer(pp.SkillsCatalogFile())
		if err != nil {
			return err
		}
		id := args[0]
		kept := cat.Entries[:0]
		removed := false
		for _, e := range cat.Entries {
			if e.ID == id {
				removed = true
				continue
			}
			kept = append(kept, e)
		}
		if !removed {
			return macc.Validationf("no skill %q in the project catalog", id)
		}
		cat.Entries = kept
		if err := catalog.SaveSkillsCatalog(pp.SkillsCatalogFile(), cat); err != nil {
			return err
		}
		outf("removed skill %q", id)
		return nil
	},
}

var catalogMcpListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the project's effective mcp catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		pp, err := resolveProjectPaths()
		if err != nil {
			return err
		}
		cat, err := catalog.LoadEffectiveMcpCatalog(mustUserCatalogDir(), pp.CatalogDir())
		if err != nil {
			return err
		}
		for _, e := range cat.Entries {
			outf("%s  %s  %v", e.ID, e.Name, e.Tags)
		}
		return nil
	},
}

var catalogMcpSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the effective mcp catalog by id/name/description/tag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pp, err := resolveProjectPaths()
		if err != nil {
			return err
		}
		cat, err := catalog.LoadEffectiveMcpCatalog(mustUserCatalogDir(), pp.CatalogDir())
		if err != nil {
			return err
		}
		q := strings.ToLower(args[0])
		for _, e := range cat.Entries {
			if mcpEntryMatches(e, q) {
				outf("%s  %s  %s", e.ID, e.Name, e.Description)
			}
		}
		return nil
	},
}

func mcpEntryMatches(e catalog.McpEntry, q string) bool {
	if strings.Contains(strings.ToLower(e.ID), q) || strings.Contains(strings.ToLower(e.Name), q) || strings.Contains(strings.ToLower(e.Description), q) {
		return true
	}
	for _, t := range e.Tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}

var catalogMcpAddCmd = &cobra.Command{
	Use:   "add <id>",
	Short: "Add an mcp entry to the project catalog layer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pp, err := resolveProjectPaths()
		if err != nil {
			return err
		}
		cat, err := catalog.LoadMcpLayer(pp.MCPCatalogFile())
		if err != nil {
			return err
		}
		id := args[0]
		for _, e := range cat.Entries {
			if e.ID == id {
				return macc.Validationf("mcp %q already exists in the project catalog", id)
			}
		}
		cat.Entries = append(cat.Entries, catalog.McpEntry{
			ID: id, Name: catalogName, Description: catalogDesc, Tags: tagsFromCSV(catalogTagsCSV),
			Selector: catalog.Selector{Subpath: catalogSubpath}, Source: entrySource(),
		})
		if err := catalog.SaveMcpCatalog(pp.MCPCatalogFile(), cat); err != nil {
			return err
		}
		outf("added mcp %q", id)
		return nil
	},
}

var catalogMcpRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove an mcp entry from the project catalog layer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pp, err := resolveProjectPaths()
		if err != nil {
			return err
		}
		cat, err := catalog.LoadMcpLayer(pp.MCPCatalogFile())
		if err != nil {
			return err
		}
		id := args[0]
		kept := cat.Entries[:0]
		removed := false
		for _, e := range cat.Entries {
			if e.ID == id {
				removed = true
				continue
			}
			kept = append(kept, e)
		}
		if !removed {
			return macc.Validationf("no mcp %q in the project catalog", id)
		}
		cat.Entries = kept
		if err := catalog.SaveMcpCatalog(pp.MCPCatalogFile(), cat); err != nil {
			return err
		}
		outf("removed mcp %q", id)
		return nil
	},
}

var catalogImportURLType string

var catalogImportURLCmd = &cobra.Command{
	Use:   "import-url <url>",
	Short: "Add a catalog entry sourced directly from a URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		url := args[0]
		kind := catalog.KindHTTP
		if strings.HasSuffix(url, ".git") || strings.Contains(url, "github.com") {
			kind = catalog.KindGit
		}
		id := catalogName
		if id == "" {
			id = strings.TrimSuffix(url[strings.LastIndex(url, "/")+1:], ".git")
		}

		pp, err := resolveProjectPaths()
		if err != nil {
			return err
		}
		src := catalog.Source{Kind: kind, URL: url, Reference: catalogSourceRef}
		if catalogSubpath != "" {
			src.Subpaths = []string{catalogSubpath}
		}

		switch catalogImportURLType {
		case "mcp":
			cat, err := catalog.LoadMcpLayer(pp.MCPCatalogFile())
			if err != nil {
				return err
			}
			cat.Entries = append(cat.Entries, catalog.McpEntry{ID: id, Name: catalogName, Description: catalogDesc, Source: src, Selector: catalog.Selector{Subpath: catalogSubpath}})
			if err := catalog.SaveMcpCatalog(pp.MCPCatalogFile(), cat); err != nil {
				return err
			}
		default:
			cat, err := catalog.LoadSkillsLayer(pp.SkillsCatalogFile())
			if err != nil {
				return err
			}
			cat.Entries = append(cat.Entries, catalog.SkillEntry{ID: id, Name: catalogName, Description: catalogDesc, Source: src, Selector: catalog.Selector{Subpath: catalogSubpath}})
			if err := catalog.SaveSkillsCatalog(pp.SkillsCatalogFile(), cat); err != nil {
				return err
			}
		}
		outf("imported %q from %s", id, url)
		return nil
	},
}

var catalogSearchRemoteCmd = &cobra.Command{
	Use:   "search-remote <query>",
	Short: "Search every catalog layer (embedded, user, project) for a match",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pp, err := resolveProjectPaths()
		if err != nil {
			return err
		}
		q := strings.ToLower(args[0])

		skills, err := catalog.LoadSkillsCatalogWithLocal(mustUserCatalogDir(), pp.CatalogDir(), pp.SkillsDir())
		if err != nil {
			return err
		}
		skills = catalog.SeedBuiltinSkills(skills)
		for _, e := range skills.Entries {
			if skillEntryMatches(e, q) {
				outf("skill  %s  %s  %s", e.ID, e.Name, e.Description)
			}
		}

		mcp, err := catalog.LoadEffectiveMcpCatalog(mustUserCatalogDir(), pp.CatalogDir())
		if err != nil {
			return err
		}
		for _, e := range mcp.Entries {
			if mcpEntryMatches(e, q) {
				outf("mcp    %s  %s  %s", e.ID, e.Name, e.Description)
			}
		}
		return nil
	},
}

func init() {
	addCatalogFlags(catalogSkillsAddCmd)
	addCatalogFlags(catalogMcpAddCmd)
	catalogImportURLCmd.Flags().StringVar(&catalogImportURLType, "type", "skill", "entry kind to create (skill, mcp)")
	catalogImportURLCmd.Flags().StringVar(&catalogName, "name", "", "entry id/name override")
	catalogImportURLCmd.Flags().StringVar(&catalogDesc, "description", "", "entry description")
	catalogImportURLCmd.Flags().StringVar(&catalogSourceRef, "source-ref", "", "source reference (branch/tag/commit)")
	catalogImportURLCmd.Flags().StringVar(&catalogSubpath, "subpath", "", "subpath within the source this entry selects")

	catalogAgentsCmd.AddCommand(catalogAgentsListCmd)
	catalogSkillsCmd.AddCommand(catalogSkillsListCmd, catalogSkillsSearchCmd, catalogSkillsAddCmd, catalogSkillsRemoveCmd)
	catalogMcpCmd.AddCommand(catalogMcpListCmd, catalogMcpSearchCmd, catalogMcpAddCmd, catalogMcpRemoveCmd)
	catalogCmd.AddCommand(catalogSkillsCmd, catalogMcpCmd, catalogAgentsCmd, catalogImportURLCmd, catalogSearchRemoteCmd)
	rootCmd.AddCommand(catalogCmd)
}
