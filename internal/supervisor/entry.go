package supervisor

import "github.com/loykin/openlist-service/internal/catalog"

// entry pairs a Config with its Runtime. All access to an entry's fields
// happens under the owning Supervisor's mu, mirroring spec §5's single
// catalog_mu guarding both Catalog and Registry rather than a per-entry
// lock — this eliminates the class of divergence bugs a Catalog/Registry
// split under independent locks would invite.
type entry struct {
	cfg catalog.Config
	rt  Runtime
}
