// Command permcheck validates a permission-table artifact before it is
// deployed: it parses the JSON, prints the effective roles and their
// operations, and reports lint warnings. Exit status is nonzero when the
// artifact cannot be parsed.
//
// Usage:
//
//	permcheck -file permissions.json
//	permcheck -minio  (reads AUTHZ_MINIO_* from the environment)
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/papyrus-app/papyrus/internal/authz"
	"github.com/papyrus-app/papyrus/internal/config"
)

func main() {
	file := flag.String("file", "permissions.json", "path to the permission table artifact")
	useMinio := flag.Bool("minio", false, "fetch the artifact from object storage (AUTHZ_MINIO_* env)")
	flag.Parse()

	var (
		table *authz.Table
		data  []byte
		err   error
	)
	if *useMinio {
		table, data, err = fromObjectStore()
	} else {
		data, err = os.ReadFile(*file)
		if err == nil {
			table, err = authz.Parse(data)
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "permcheck: %v\n", err)
		os.Exit(1)
	}

	for _, role := range table.Roles() {
		ops := table.Operations(role)
		parts := make([]string, 0, len(ops))
		for _, op := range ops {
			rule, _ := table.Rule(role, op)
			if rule.OwnerOnly {
				parts = append(parts, string(op)+"(ownerOnly)")
				continue
			}
			parts = append(parts, string(op))
		}
		fmt.Printf("%s: %s\n", role, strings.Join(parts, ", "))
	}

	warnings, err := authz.Lint(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "permcheck: %v\n", err)
		os.Exit(1)
	}
	for _, w := range warnings {
		fmt.Printf("warning: %s\n", w)
	}
	if len(warnings) == 0 {
		fmt.Println("ok")
	}
}

func fromObjectStore() (*authz.Table, []byte, error) {
	ac := config.LoadAuthz()
	if ac.MinIOEndpoint == "" {
		return nil, nil, fmt.Errorf("AUTHZ_MINIO_ENDPOINT is not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	data, err := authz.FetchObject(ctx, authz.ObjectSourceConfig{
		Endpoint:  ac.MinIOEndpoint,
		AccessKey: ac.MinIOAccessKey,
		SecretKey: ac.MinIOSecretKey,
		UseSSL:    ac.MinIOUseSSL,
		Bucket:    ac.MinIOBucket,
		Object:    ac.MinIOObject,
	})
	if err != nil {
		return nil, nil, err
	}
	table, err := authz.Parse(data)
	return table, data, err
}
