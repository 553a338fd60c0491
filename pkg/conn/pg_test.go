package conn

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDSN(t *testing.T) {
	testCases := []struct {
		desc     string
		opt      Option
		expected string
	}{
		{"defaults", Option{}, "postgres://localhost:5432?sslmode=disable"},
		{
			"full",
			Option{Host: "db", Port: 6543, User: "sim", Password: "pw", Database: "exec", SSLMode: "require", Params: map[string]string{"application_name": "simexec", "": "x"}},
			"postgres://sim:pw@db:6543/exec?application_name=simexec&sslmode=require",
		},
		{"conn string wins", Option{Host: "db", ConnString: "host=x"}, "host=x"},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.opt.DSN())
		})
	}
}

func TestRedactedHidesPassword(t *testing.T) {
	opt := Option{User: "sim", Password: "secret"}
	assert.NotContains(t, opt.redacted(), "secret")
	assert.Contains(t, opt.DSN(), "secret")
}

func TestNilClient(t *testing.T) {
	var c *Client
	assert.Nil(t, c.DB())
	assert.NoError(t, c.Close())
}
