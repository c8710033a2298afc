package trainingset

// CategoryName is a strongly-typed category label used in fixtures.
type CategoryName string

// String returns the string representation of the category name.
func (c CategoryName) String() string {
	return string(c)
}

// Category labels used across tests.
const (
	CategoryDining        CategoryName = "Dining"
	CategoryRetail        CategoryName = "Retail"
	CategoryFuel          CategoryName = "Fuel"
	CategoryEntertainment CategoryName = "Entertainment"
	CategoryGroceries     CategoryName = "Groceries"
)

// Pair is one labeled merchant in a fixture.
type Pair struct {
	Merchant string
	Category CategoryName
}

// Fixture represents a predefined labeled dataset for testing.
type Fixture interface {
	// Name returns the fixture's descriptive name.
	Name() string

	// Description returns what the fixture is meant to exercise.
	Description() string

	// Pairs returns the labeled merchants in training order.
	Pairs() []Pair
}

type fixture struct {
	name        string
	description string
	pairs       []Pair
}

func (f *fixture) Name() string        { return f.name }
func (f *fixture) Description() string { return f.description }
func (f *fixture) Pairs() []Pair       { return f.pairs }

// Predefined fixtures.
var (
	// FixtureScenario is the three-merchant end-to-end dataset.
	FixtureScenario = &fixture{
		name:        "Scenario",
		description: "One merchant per category, too small to calibrate",
		pairs: []Pair{
			{"Starbucks", CategoryDining},
			{"Walmart", CategoryRetail},
			{"Shell Gas", CategoryFuel},
		},
	}

	// FixtureStandard has enough examples per category for a calibrated model.
	FixtureStandard = &fixture{
		name:        "Standard",
		description: "Fifteen noisy merchant strings for each of four categories",
		pairs: withCategory(CategoryDining,
			"Starbucks", "SQ *STARBUCKS #1021", "Starbucks Coffee 3312", "Chipotle Mexican Grill",
			"CHIPOTLE 1187", "McDonald's", "MCDONALDS F2231", "Panera Bread", "PANERA BREAD #204",
			"DoorDash Dashpass", "Uber Eats", "Dunkin #3321", "Subway 11223", "Taco Bell 0912",
			"Chick-fil-A #1442",
		).
			and(CategoryRetail,
				"Walmart", "WAL-MART #5311", "Walmart Supercenter", "Target", "TARGET T-1234",
				"Amazon.com", "AMZN Mktp US", "Best Buy 00231", "Costco Whse #0012", "Home Depot 4410",
				"Lowe's #1123", "Macy's", "IKEA", "Kohls 0221", "TJ Maxx 1102",
			).
			and(CategoryFuel,
				"Shell Gas", "SHELL OIL 57442", "Shell Service Station", "Chevron 0093", "CHEVRON 203311",
				"Exxon Mobil", "EXXONMOBIL 4421", "BP #9981", "Sunoco 0443", "Valero 1121",
				"Marathon Petro 22", "Speedway 0331", "Circle K 2210", "Arco #42", "Citgo 1120",
			).
			and(CategoryEntertainment,
				"Netflix", "NETFLIX.COM", "Netflix Inc", "Spotify USA", "SPOTIFY P0123",
				"Hulu", "HULU 877-8244858", "AMC Theatres", "AMC 1223 ONLINE", "Disney Plus",
				"Regal Cinemas", "Steam Games", "Xbox Live", "Playstation Network", "Ticketmaster",
			),
	}

	// FixtureConflicting labels one merchant inconsistently.
	FixtureConflicting = &fixture{
		name:        "Conflicting",
		description: "Duplicate merchants with disagreeing labels",
		pairs: []Pair{
			{"Costco", CategoryGroceries},
			{"Costco", CategoryRetail},
			{"COSTCO", CategoryRetail},
			{"Target", CategoryRetail},
			{"Whole Foods", CategoryGroceries},
			{"Trader Joe's", CategoryGroceries},
		},
	}
)

type pairList []Pair

func withCategory(category CategoryName, merchants ...string) pairList {
	return pairList(nil).and(category, merchants...)
}

func (l pairList) and(category CategoryName, merchants ...string) pairList {
	for _, m := range merchants {
		l = append(l, Pair{Merchant: m, Category: category})
	}
	return l
}

// CompositeFixture combines several fixtures in order.
type CompositeFixture struct {
	name     string
	fixtures []Fixture
}

// NewCompositeFixture creates a fixture that concatenates multiple fixtures.
func NewCompositeFixture(name string, fixtures ...Fixture) Fixture {
	return &CompositeFixture{name: name, fixtures: fixtures}
}

func (c *CompositeFixture) Name() string        { return c.name }
func (c *CompositeFixture) Description() string { return "Composite of " + c.name }

func (c *CompositeFixture) Pairs() []Pair {
	var out []Pair
	for _, f := range c.fixtures {
		out = append(out, f.Pairs()...)
	}
	return out
}
