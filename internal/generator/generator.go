package generator

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/vanshika/docstore/internal/domain"
)

// SeedClient pairs a client with the tax returns to create for it. The
// returns carry no client id; the writer fills it in after the client
// row is inserted.
type SeedClient struct {
	Client  domain.ClientInput
	Returns []domain.TaxReturnInput
}

// Dataset contains the generated clients and their tax returns.
type Dataset struct {
	Clients []SeedClient
}

// Generator produces synthetic clients and tax returns for demo and
// load-testing purposes. Output is deterministic for a given seed.
type Generator struct {
	cfg  Config
	rand *rand.Rand
}

// New returns a configured Generator instance.
func New(cfg Config) *Generator {
	if cfg.NumClients <= 0 {
		cfg.NumClients = DefaultConfig().NumClients
	}
	if cfg.ReturnsPerClient < 0 {
		cfg.ReturnsPerClient = DefaultConfig().ReturnsPerClient
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
	firstNames = []string{
		"James", "Mary", "Robert", "Patricia", "John", "Jennifer",
		"Michael", "Linda", "David", "Elizabeth", "William", "Barbara",
		"Richard", "Susan", "Joseph", "Jessica", "Thomas", "Sarah",
	}
	lastNames = []string{
		"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia",
		"Miller", "Davis", "Rodriguez", "Martinez", "Hernandez", "Lopez",
	}
	streets        = []string{"Oak St", "Maple Ave", "Pine Rd", "Cedar Ln", "Elm Dr", "Birch Ct"}
	filingStatuses = []string{"Single", "Married Filing Jointly", "Married Filing Separately", "Head of Household"}
	incomeKinds    = []string{"wages", "interest", "dividends", "self_employment", "rental"}
	deductionKinds = []string{"standard_deduction", "mortgage_interest", "charitable", "student_loan_interest", "medical"}
	creditKinds    = []string{"child_tax_credit", "earned_income_credit", "education_credit", "energy_credit"}
)

// Generate synthesises clients with tax returns across recent tax
// years. It respects context cancellation.
func (g *Generator) Generate(ctx context.Context) (Dataset, error) {
	currentYear := time.Now().Year()
	clients := make([]SeedClient, g.cfg.NumClients)

	for i := 0; i < g.cfg.NumClients; i++ {
		if err := ctx.Err(); err != nil {
			return Dataset{}, err
		}

		first := firstNames[g.rand.Intn(len(firstNames))]
		last := lastNames[g.rand.Intn(len(lastNames))]

		client := domain.ClientInput{
			FirstName:            first,
			LastName:             last,
			SocialSecurityNumber: g.randomSSN(),
			Address:              fmt.Sprintf("%d %s", 100+g.rand.Intn(9900), streets[g.rand.Intn(len(streets))]),
			PhoneNumber:          g.randomPhone(),
			Email:                fmt.Sprintf("%s.%s%d@example.com", strings.ToLower(first), strings.ToLower(last), g.rand.Intn(100)),
		}

		returns := make([]domain.TaxReturnInput, 0, g.cfg.ReturnsPerClient)
		for j := 0; j < g.cfg.ReturnsPerClient; j++ {
			returns = append(returns, g.randomReturn(currentYear-1-j))
		}

		clients[i] = SeedClient{Client: client, Returns: returns}
	}

	return Dataset{Clients: clients}, nil
}

func (g *Generator) randomReturn(year int) domain.TaxReturnInput {
	income := g.randomAmounts(incomeKinds, 1+g.rand.Intn(3), 2000, 150000)
	deductions := g.randomAmounts(deductionKinds, 1+g.rand.Intn(3), 500, 25000)
	credits := g.randomAmounts(creditKinds, g.rand.Intn(3), 250, 5000)

	var totalIncome float64
	for _, v := range income {
		totalIncome += v
	}
	liability := round2(totalIncome * (0.1 + 0.25*g.rand.Float64()))
	paid := round2(liability * (0.7 + 0.6*g.rand.Float64()))

	return domain.TaxReturnInput{
		TaxYear:           year,
		FilingStatus:      filingStatuses[g.rand.Intn(len(filingStatuses))],
		IncomeSources:     income,
		Deductions:        deductions,
		Credits:           credits,
		TaxesPaid:         paid,
		TaxLiability:      liability,
		RefundOrAmountDue: round2(paid - liability),
	}
}

func (g *Generator) randomAmounts(kinds []string, n int, min, max float64) map[string]float64 {
	amounts := map[string]float64{}
	for i := 0; i < n && i < len(kinds); i++ {
		amounts[kinds[i]] = round2(min + (max-min)*g.rand.Float64())
	}
	return amounts
}

func (g *Generator) randomSSN() string {
	return fmt.Sprintf("%03d-%02d-%04d", 1+g.rand.Intn(899), g.rand.Intn(100), g.rand.Intn(10000))
}

func (g *Generator) randomPhone() string {
	return fmt.Sprintf("(%03d) %03d-%04d", 200+g.rand.Intn(800), 200+g.rand.Intn(800), g.rand.Intn(10000))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
