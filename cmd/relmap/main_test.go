package main

import (
	"bytes"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/relmap/internal/config"
)

const shopYAML = `
package: example.com/shop
types:
  - name: Customer
    properties:
      - name: Name
        type: string
        max_length: 100
      - name: Orders
        relation: {target: Order, opposite: Customer, cardinality: many}
  - name: Order
    properties:
      - name: Number
        type: int32
      - name: Customer
        relation: {target: Customer, opposite: Orders, mandatory: true}
`

// project creates a relmap project in a temporary working directory and
// returns the path of its SQLite database.
func project(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	db := filepath.Join(dir, "shop.db")
	writeFile(t, "relmap.yaml", `
sources:
  paths: [mapping/*.yaml]
storage:
  dialect: sqlite
  dsn: file:`+db+`
log:
  level: error
gen:
  package: shopmap
  output: shopmap
`)
	writeFile(t, filepath.Join("mapping", "shop.yaml"), shopYAML)
	return db
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func run(args ...string) (string, error) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := newRootCommand()
	assert.Equal(t, "relmap", cmd.Use)
	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"check", "describe", "ddl", "verify", "gen", "graphql", "snapshot", "watch", "version"} {
		assert.Contains(t, names, want)
	}

	out, err := run("version")
	require.NoError(t, err)
	assert.Contains(t, out, Version)
}

func TestCheck(t *testing.T) {
	project(t)
	out, err := run("check")
	require.NoError(t, err)
	assert.Contains(t, out, "mapping is valid")
	assert.Contains(t, out, "2 classes, 0 interfaces, 1 relations")

	writeFile(t, filepath.Join("mapping", "billing.yaml"), `
package: example.com/billing
types:
  - name: Invoice
    class_id: Order
`)
	out, err = run("check")
	require.Error(t, err)
	assert.Contains(t, out, "problem(s) in stage")
	assert.Contains(t, out, `"Order"`)
}

func TestCheckConfigError(t *testing.T) {
	project(t)
	_, err := run("check", "--config", "missing.yaml")
	require.ErrorContains(t, err, "failed to read config file")

	_, err = run("check", "--log-level", "loud")
	require.ErrorContains(t, err, "log.level")
}

func TestDescribe(t *testing.T) {
	project(t)
	out, err := run("describe", "Order")
	require.NoError(t, err)
	assert.Contains(t, out, "Order (example.com/shop.Order) -> orders")
	assert.Regexp(t, `Customer\s+-> example.com/shop.Customer\s+customer_id`, out)
	assert.NotContains(t, out, "Customer (example.com/shop.Customer)")

	out, err = run("describe")
	require.NoError(t, err)
	assert.Contains(t, out, "Customer (example.com/shop.Customer) -> customers")
	assert.Regexp(t, `Orders\s+many example.com/shop.Order`, out)

	out, err = run("describe", "--raw", "Customer")
	require.NoError(t, err)
	assert.Contains(t, out, `ID: (string) (len=25) "example.com/shop.Customer"`)

	_, err = run("describe", "Invoice")
	require.Error(t, err)
}

func TestDDLAndVerify(t *testing.T) {
	path := project(t)

	out, err := run("verify")
	require.Error(t, err)
	assert.Contains(t, out, `table "customers" is missing`)

	out, err = run("ddl")
	require.NoError(t, err)
	assert.Contains(t, out, "CREATE TABLE `customers`")

	db, err := sql.Open("sqlite", "file:"+path)
	require.NoError(t, err)
	defer db.Close()
	for _, stmt := range strings.Split(strings.TrimSpace(out), ";\n") {
		_, err := db.Exec(strings.TrimSuffix(stmt, ";"))
		require.NoError(t, err, stmt)
	}

	out, err = run("verify")
	require.NoError(t, err)
	assert.Contains(t, out, "database matches the mapping")
}

func TestVerifyNoDSN(t *testing.T) {
	project(t)
	writeFile(t, "nodsn.yaml", "storage: {dialect: sqlite}\nlog: {level: error}\n")
	_, err := run("verify", "--config", "nodsn.yaml")
	require.ErrorContains(t, err, "no data source")
}

func TestGenerate(t *testing.T) {
	project(t)
	out, err := run("gen")
	require.NoError(t, err)
	assert.Contains(t, out, "generated 3 files in shopmap")
	data, err := os.ReadFile(filepath.Join("shopmap", "order.go"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "package shopmap")

	out, err = run("graphql", "--out", "-", "--query")
	require.NoError(t, err)
	assert.Contains(t, out, "orders: [Order!]!")
	assert.Contains(t, out, "type Query")

	_, err = run("graphql")
	require.NoError(t, err)
	_, err = os.Stat("relmap.graphql")
	require.NoError(t, err)
}

func TestSnapshot(t *testing.T) {
	project(t)
	out, err := run("snapshot", "write")
	require.NoError(t, err)
	assert.Contains(t, out, "written to .relmap.snapshot")

	out, err = run("snapshot", "diff")
	require.NoError(t, err)
	assert.Contains(t, out, "no changes")

	writeFile(t, filepath.Join("mapping", "shop.yaml"), strings.Replace(shopYAML, "type: int32", "type: int64", 1))
	out, err = run("snapshot", "diff")
	require.ErrorContains(t, err, "1 breaking change(s)")
	assert.Contains(t, out, "BREAKING property changed: example.com/shop.Order.Number (type int32 became int64)")

	_, err = run("snapshot", "diff", "--allow-breaking")
	require.NoError(t, err)

	_, err = run("snapshot", "diff", "-f", "missing.snapshot")
	require.Error(t, err)
}

func TestWatchDirs(t *testing.T) {
	cfg := &config.Config{Sources: config.SourcesConfig{
		Kind:  config.SourceYAML,
		Paths: []string{"mapping/*.yaml", "mapping/extra.yaml", "shared/*.yml"},
	}}
	assert.Equal(t, []string{"mapping", "shared"}, watchDirs(cfg))

	cfg.Sources = config.SourcesConfig{Kind: config.SourcePackages, Dir: "./model"}
	assert.Equal(t, []string{"./model"}, watchDirs(cfg))
}
