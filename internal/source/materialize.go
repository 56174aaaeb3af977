package source

import (
	"context"
	"path/filepath"

	"github.com/boshu2/macc/internal/catalog"
	"github.com/boshu2/macc/internal/macc"
	"github.com/boshu2/macc/internal/paths"
	"github.com/boshu2/macc/internal/resolver"
	"github.com/boshu2/macc/internal/worker"
)

// MaterializedFetchUnit is a FetchUnit after its source has been resolved
// to a concrete on-disk root.
type MaterializedFetchUnit struct {
	SourceRootPath string
	Selections     []resolver.Selection
}

// MaterializeSource resolves a single Source to its on-disk root, dispatching
// by Kind.
func MaterializeSource(ctx context.Context, pp paths.ProjectPaths, src catalog.Source) (string, error) {
	switch src.Kind {
	case catalog.KindGit:
		return GitFetch(ctx, pp, src)
	case catalog.KindHTTP:
		return DownloadAndUnpack(ctx, pp, src)
	case catalog.KindLocal:
		return MaterializeLocal(pp, src)
	default:
		return "", macc.Validationf("unknown source kind %q", src.Kind)
	}
}

// MaterializeFetchUnit materializes unit.Source and validates that every
// member selection's subpath exists under the resulting root, running
// skill/MCP manifest validation per selection kind.
func MaterializeFetchUnit(ctx context.Context, pp paths.ProjectPaths, unit resolver.FetchUnit) (MaterializedFetchUnit, error) {
	root, err := MaterializeSource(ctx, pp, unit.Source)
	if err != nil {
		return MaterializedFetchUnit{}, err
	}

	for _, sel := range unit.Selections {
		p := root
		if sel.Subpath != "" && sel.Subpath != "." {
			p = filepath.Join(root, sel.Subpath)
		}

		switch sel.Kind {
		case catalog.EntrySkill:
			if err := ValidateSkillFolder(p, unit.Source.Kind != catalog.KindLocal); err != nil {
				return MaterializedFetchUnit{}, macc.Validationf("selection %q (subpath %q): %v", sel.ID, sel.Subpath, err)
			}
		case catalog.EntryMCP:
			if _, err := ValidateMcpFolder(p, sel.ID); err != nil {
				return MaterializedFetchUnit{}, macc.Validationf("selection %q (subpath %q): %v", sel.ID, sel.Subpath, err)
			}
		}
	}

	return MaterializedFetchUnit{SourceRootPath: root, Selections: unit.Selections}, nil
}

// MaterializeFetchUnits materializes every unit concurrently (git clones and
// HTTP downloads are network-bound and independent of one another), then
// returns the results in the same order as units. The first error
// encountered among the batch is returned.
func MaterializeFetchUnits(ctx context.Context, pp paths.ProjectPaths, units []resolver.FetchUnit) ([]MaterializedFetchUnit, error) {
	if len(units) == 0 {
		return nil, nil
	}

	results := worker.Process(0, units, func(unit resolver.FetchUnit) (MaterializedFetchUnit, error) {
		return MaterializeFetchUnit(ctx, pp, unit)
	})

	materialized := make([]MaterializedFetchUnit, len(results))
	for i, r := range results {
		if r.Err != nil {
			return nil, r.Err
		}
		materialized[i] = r.Value
	}
	return materialized, nil
}
