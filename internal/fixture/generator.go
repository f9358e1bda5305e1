// Package fixture generates synthetic nonprofit filing networks for local
// development and tests. The generated dataset can back the in-memory
// upstream stubs, so the full resolution pipeline runs without touching the
// real services.
package fixture

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/signalpot/entitygraph/internal/domain"
)

// Config controls the shape of the generated network.
type Config struct {
	NumOrgs       int     `json:"numOrgs"`
	MaxRelations  int     `json:"maxRelations"`
	CycleChance   float64 `json:"cycleChance"`
	AmountChance  float64 `json:"amountChance"`
	OrphanChance  float64 `json:"orphanChance"` // org without any filing
	TaxYear       int     `json:"taxYear"`
	Seed          int64   `json:"seed"`
}

// DefaultConfig returns generation defaults that produce a small connected
// network with a couple of cycles.
func DefaultConfig() Config {
	return Config{
		NumOrgs:      25,
		MaxRelations: 4,
		CycleChance:  0.15,
		AmountChance: 0.5,
		OrphanChance: 0.1,
		TaxYear:      2023,
		Seed:         1,
	}
}

// Relation is one disclosed relationship in a synthetic filing.
type Relation struct {
	TargetEIN string              `json:"targetEin"`
	Kind      domain.RelationKind `json:"kind"`
	Amount    *float64            `json:"amount,omitempty"`
}

// Org is one synthetic organization, including the filing it discloses.
type Org struct {
	EIN       string     `json:"ein"`
	Name      string     `json:"name"`
	City      string     `json:"city"`
	State     string     `json:"state"`
	ObjectID  string     `json:"objectId,omitempty"` // empty means no filing
	TaxYear   int        `json:"taxYear"`
	Relations []Relation `json:"relations"`
}

// Dataset is a generated network. Orgs[0] is the intended seed.
type Dataset struct {
	RootEIN string `json:"rootEin"`
	Orgs    []Org  `json:"orgs"`
}

// Generator produces synthetic networks aligned with the resolver's upstream
// data shapes.
type Generator struct {
	cfg  Config
	rand *rand.Rand
}

// New returns a configured Generator instance.
func New(cfg Config) *Generator {
	defaults := DefaultConfig()
	if cfg.NumOrgs <= 0 {
		cfg.NumOrgs = defaults.NumOrgs
	}
	if cfg.MaxRelations <= 0 {
		cfg.MaxRelations = defaults.MaxRelations
	}
	if cfg.TaxYear <= 0 {
		cfg.TaxYear = defaults.TaxYear
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	return &Generator{
		cfg:  cfg,
		rand: rand.New(rand.NewSource(cfg.Seed)),
	}
}

var (
	namePrefixes = []string{
		"Mercy", "St. Luke's", "Riverside", "Summit", "Lakeland",
		"Providence", "Good Samaritan", "Harbor", "Cedar Valley", "Unity",
	}
	nameSuffixes = []string{
		"Health System", "Hospital", "Foundation", "Medical Center",
		"Community Services", "Ministries", "Regional Network", "Charitable Trust",
	}
	cities = []string{
		"Cleveland", "Columbus", "Toledo", "Dayton", "Akron",
		"Cincinnati", "Canton", "Youngstown",
	}
	kinds = []domain.RelationKind{
		domain.KindParent,
		domain.KindSubordinate,
		domain.KindSupportingOrg,
		domain.KindControlled,
		domain.KindOther,
	}
)

// Generate synthesizes a network. It respects context cancellation.
func (g *Generator) Generate(ctx context.Context) (Dataset, error) {
	orgs := make([]Org, g.cfg.NumOrgs)
	for i := range orgs {
		if err := ctx.Err(); err != nil {
			return Dataset{}, err
		}
		orgs[i] = g.org(i)
	}

	// Wire a spanning structure first so everything is reachable from the
	// root, then sprinkle extra links and the occasional back-edge cycle.
	for i := 1; i < len(orgs); i++ {
		parent := g.rand.Intn(i)
		g.link(&orgs[parent], &orgs[i])
	}
	for i := range orgs {
		extra := g.rand.Intn(g.cfg.MaxRelations)
		for n := 0; n < extra; n++ {
			j := g.rand.Intn(len(orgs))
			if j == i {
				continue
			}
			g.link(&orgs[i], &orgs[j])
		}
		if g.rand.Float64() < g.cfg.CycleChance && i > 0 {
			// Back-edge to the root to exercise cycle safety.
			g.link(&orgs[i], &orgs[0])
		}
	}

	return Dataset{RootEIN: orgs[0].EIN, Orgs: orgs}, nil
}

func (g *Generator) org(i int) Org {
	ein := fmt.Sprintf("%09d", 100000000+g.rand.Intn(900000000))
	org := Org{
		EIN:     ein,
		Name:    namePrefixes[g.rand.Intn(len(namePrefixes))] + " " + nameSuffixes[g.rand.Intn(len(nameSuffixes))],
		City:    cities[g.rand.Intn(len(cities))],
		State:   "OH",
		TaxYear: g.cfg.TaxYear,
	}
	if i == 0 || g.rand.Float64() >= g.cfg.OrphanChance {
		org.ObjectID = fmt.Sprintf("%d%08d", g.cfg.TaxYear, i)
	}
	return org
}

func (g *Generator) link(src, dst *Org) {
	for _, rel := range src.Relations {
		if rel.TargetEIN == dst.EIN {
			return
		}
	}
	rel := Relation{
		TargetEIN: dst.EIN,
		Kind:      kinds[g.rand.Intn(len(kinds))],
	}
	if g.rand.Float64() < g.cfg.AmountChance {
		amount := float64(g.rand.Intn(5_000_000)) + g.rand.Float64()
		rel.Amount = &amount
	}
	src.Relations = append(src.Relations, rel)
}
