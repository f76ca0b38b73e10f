// Package main checks that a revised swagger.yaml stays backward compatible
// with the API clients already built against the base revision.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var httpMethods = []string{"get", "put", "post", "delete", "patch", "head", "options"}

type parameter struct {
	Name     string `yaml:"name"`
	In       string `yaml:"in"`
	Required bool   `yaml:"required"`
}

type operation struct {
	Parameters []parameter          `yaml:"parameters"`
	Responses  map[string]yaml.Node `yaml:"responses"`
}

type document struct {
	Paths map[string]map[string]operation
}

type rawDocument struct {
	Paths map[string]map[string]yaml.Node `yaml:"paths"`
}

func main() {
	basePath := flag.String("base", "", "base swagger.yaml path")
	revisionPath := flag.String("revision", "", "revision swagger.yaml path")
	flag.Parse()

	if strings.TrimSpace(*basePath) == "" || strings.TrimSpace(*revisionPath) == "" {
		fmt.Fprintln(os.Stderr, "usage: openapi-compat -base <path> -revision <path>")
		os.Exit(2)
	}

	base, err := loadDocument(*basePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load base spec: %v\n", err)
		os.Exit(1)
	}
	revision, err := loadDocument(*revisionPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load revision spec: %v\n", err)
		os.Exit(1)
	}

	if issues := compare(base, revision); len(issues) > 0 {
		fmt.Fprintln(os.Stderr, "backward compatibility check failed:")
		for _, issue := range issues {
			fmt.Fprintf(os.Stderr, "- %s\n", issue)
		}
		os.Exit(1)
	}
	fmt.Println("openapi compatibility check passed")
}

func loadDocument(path string) (document, error) {
	// #nosec G304: path comes from CLI flags in a dev tool
	raw, err := os.ReadFile(path)
	if err != nil {
		return document{}, err
	}
	return parseDocument(raw)
}

func parseDocument(raw []byte) (document, error) {
	var doc rawDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return document{}, err
	}
	if doc.Paths == nil {
		return document{}, errors.New("missing top-level paths field")
	}

	// Path items may carry non-operation keys such as shared parameters.
	out := document{Paths: make(map[string]map[string]operation, len(doc.Paths))}
	for path, item := range doc.Paths {
		ops := make(map[string]operation)
		for key, node := range item {
			method := strings.ToLower(strings.TrimSpace(key))
			if !slices.Contains(httpMethods, method) {
				continue
			}
			var op operation
			if err := node.Decode(&op); err != nil {
				return document{}, fmt.Errorf("%s %s: %w", strings.ToUpper(method), path, err)
			}
			ops[method] = op
		}
		out.Paths[path] = ops
	}
	return out, nil
}

func requiredParams(op operation) map[string]struct{} {
	out := make(map[string]struct{})
	for _, p := range op.Parameters {
		if p.Required {
			out[p.In+":"+p.Name] = struct{}{}
		}
	}
	return out
}

// compare lists every change in revision that would break a client of base:
// removed paths, operations and response codes, and parameters that became required.
func compare(base, revision document) []string {
	var issues []string

	for path, baseOps := range base.Paths {
		revOps, ok := revision.Paths[path]
		if !ok {
			issues = append(issues, "removed path: "+path)
			continue
		}

		for method, baseOp := range baseOps {
			label := strings.ToUpper(method) + " " + path
			revOp, ok := revOps[method]
			if !ok {
				issues = append(issues, "removed operation: "+label)
				continue
			}

			for code := range baseOp.Responses {
				if _, ok := revOp.Responses[code]; !ok {
					issues = append(issues, fmt.Sprintf("removed response code: %s -> %s", label, code))
				}
			}

			wasRequired := requiredParams(baseOp)
			for key := range requiredParams(revOp) {
				if _, ok := wasRequired[key]; !ok {
					issues = append(issues, fmt.Sprintf("new required parameter: %s -> %s", label, key))
				}
			}
		}
	}

	sort.Strings(issues)
	return issues
}
