package sqlite

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

const memoryDSN = ":memory:"

// parseDSN converts sqlite://path[?query] into the path form modernc.org/sqlite
// expects. Relative paths are anchored at the working directory.
func parseDSN(dsn string) (string, error) {
	rest, ok := strings.CutPrefix(dsn, "sqlite://")
	if !ok {
		return "", fmt.Errorf("invalid sqlite DSN scheme, expected sqlite://")
	}
	if rest == "" {
		return "", fmt.Errorf("sqlite DSN has no path")
	}
	if rest == memoryDSN {
		return memoryDSN, nil
	}

	path, query, hasQuery := strings.Cut(rest, "?")
	unescaped, err := url.PathUnescape(path)
	if err != nil {
		return "", fmt.Errorf("unescaping path: %w", err)
	}
	path = unescaped

	if !filepath.IsAbs(path) && !strings.HasPrefix(path, "./") {
		path = "./" + path
	}
	if hasQuery {
		return path + "?" + query, nil
	}
	return path, nil
}

// connParams are applied by the driver to every pooled connection. Setting
// them with PRAGMA statements after sql.Open would reach only one connection.
func connParams(memory bool) []string {
	params := []string{
		"_pragma=busy_timeout(30000)",
		"_pragma=foreign_keys(1)",
	}
	if !memory {
		params = append(params, "_pragma=journal_mode(WAL)")
	}
	return append(params, "_txlock=immediate")
}

// withConnParams appends connParams to a driver DSN, leaving any setting the
// caller already gave alone.
func withConnParams(driverDSN string) string {
	path, query, _ := strings.Cut(driverDSN, "?")
	parts := []string{}
	if query != "" {
		parts = append(parts, query)
	}
	for _, param := range connParams(path == memoryDSN) {
		key, _, _ := strings.Cut(param, "(")
		if strings.HasPrefix(param, "_txlock") {
			key = "_txlock="
		}
		if strings.Contains(query, key) {
			continue
		}
		parts = append(parts, param)
	}
	return path + "?" + strings.Join(parts, "&")
}
