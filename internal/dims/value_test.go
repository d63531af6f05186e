package dims

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddRequiresIdenticalDimension(t *testing.T) {
	usd := Money(100, "USD")
	eur := Money(50, "EUR")

	_, err := usd.Add(eur)
	require.Error(t, err, "currency mixing must be rejected")

	sum, err := usd.Add(Money(25, "USD"))
	require.NoError(t, err)
	assert.Equal(t, 125.0, sum.Num)
	assert.True(t, sum.Dim.Equal(Currency("USD")))
}

func TestMulComposesValueDimensions(t *testing.T) {
	price := Money(30, "USD")
	customers, err := Entities(100, "Customer")
	require.NoError(t, err)

	perCustomer, err := price.Div(customers)
	require.NoError(t, err)

	total, err := perCustomer.Mul(customers)
	require.NoError(t, err)
	assert.Equal(t, 30.0, total.Num)
	assert.True(t, total.Dim.Equal(Currency("USD")))
}

func TestDivisionByZero(t *testing.T) {
	_, err := Fraction(1).Div(Fraction(0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "division by zero")
}

func TestCountMustBeIntegral(t *testing.T) {
	_, err := Entities(1.5, "Customer")
	require.Error(t, err)

	_, err = Resources(2.25, "Server")
	require.Error(t, err)
}

func TestCompare(t *testing.T) {
	a := Money(10, "USD")
	b := Money(20, "USD")

	lt, err := a.Compare("<", b)
	require.NoError(t, err)
	assert.True(t, lt.Bool)

	_, err = a.Compare("<", Months(3))
	require.Error(t, err, "comparison requires dimension equality")
}

func TestTimeSeriesWriteOnce(t *testing.T) {
	s := NewTimeSeries(Currency("USD"), 12)
	require.NoError(t, s.Set(0, 10000))
	require.NoError(t, s.Set(1, 11000))

	err := s.Set(1, 99)
	require.Error(t, err, "series cells are write-once")

	v, err := s.At(1)
	require.NoError(t, err)
	assert.Equal(t, 11000.0, v.Num)

	_, err = s.At(5)
	require.Error(t, err, "unwritten index is absent, not zero")
}

func TestCohortSeries(t *testing.T) {
	c := NewCohortSeries(Count("Customer"))
	require.NoError(t, c.Set(0, 0, 100))
	require.NoError(t, c.Set(0, 1, 92))

	require.Error(t, c.Set(0, 1, 90), "cohort cells are write-once")

	v, err := c.At(0, 1)
	require.NoError(t, err)
	assert.Equal(t, 92.0, v.Num)
}

func TestDistributionValidate(t *testing.T) {
	ok := &Distribution{Kind: DistNormal, Params: []float64{10, 2}}
	require.NoError(t, ok.Validate())

	bad := &Distribution{Kind: DistBeta, Params: []float64{-1, 2}}
	require.Error(t, bad.Validate())

	tri := &Distribution{Kind: DistTriangular, Params: []float64{3, 2, 1}}
	require.Error(t, tri.Validate())

	mix := &Distribution{
		Kind: DistMixture,
		Components: []Weighted{
			{Weight: 0.7, Dist: &Distribution{Kind: DistNormal, Params: []float64{5, 1}}},
			{Weight: 0.3, Dist: &Distribution{Kind: DistUniform, Params: []float64{0, 10}}},
		},
	}
	require.NoError(t, mix.Validate())
}
