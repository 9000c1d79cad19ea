// SPDX-License-Identifier: Apache-2.0

// pimkeyring is a thin CLI around the pimkeyring library: read, write, or
// delete one secret per invocation.
//
// Usage:
//
//	pimkeyring [flags] read|write|delete
//
// Flags:
//
//	--service             string    service name (default: the library identifier, "pimkeyring")
//	--name                string    account/entry name (required)
//	--secret               string    secret value to write (write only; reads from stdin if omitted)
//	--encryption          string    "plain" or "dh" (default: "dh")
//	--provider            string    "dbus-secret-service", "windows-credentials", or "apple-keychain"
//	--timeout             duration  per-invocation deadline (default: 30s)
//	--disable-memprotect            [DEBUG] disable memory protection (prctl, mlockall)
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/mjlee/pimkeyring"
)

func main() {
	service := flag.String("service", "", "service name (defaults to the library identifier)")
	name := flag.String("name", "", "account/entry name")
	secret := flag.String("secret", "", "secret value to write (write only; reads stdin if empty)")
	encryption := flag.String("encryption", string(pimkeyring.EncryptionDH), `session encryption: "plain" or "dh"`)
	provider := flag.String("provider", string(pimkeyring.ProviderDBusSecretService), "keyring provider")
	timeout := flag.Duration("timeout", 30*time.Second, "per-invocation deadline")
	disableMemprotect := flag.Bool("disable-memprotect", false, "[DEBUG] disable memory protection (prctl, mlockall)")
	flag.Parse()

	log.SetPrefix("pimkeyring: ")
	log.SetFlags(0)

	if *disableMemprotect {
		log.Printf("[DEBUG] memory protection disabled")
	} else if err := hardenProcess(); err != nil {
		log.Fatalf("harden process: %v", err)
	}

	if flag.NArg() != 1 {
		log.Fatalf("usage: pimkeyring [flags] read|write|delete")
	}
	if *name == "" {
		log.Fatalf("--name is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	kr, err := pimkeyring.New(ctx, pimkeyring.Options{
		Provider:   pimkeyring.Provider(*provider),
		Encryption: pimkeyring.Encryption(*encryption),
		Service:    *service,
	})
	if err != nil {
		log.Fatalf("open keyring: %v", err)
	}
	defer func() {
		if err := kr.Close(); err != nil {
			log.Printf("close keyring: %v", err)
		}
	}()

	switch flag.Arg(0) {
	case "read":
		secret, err := kr.Read(ctx, *service, *name)
		if err != nil {
			log.Fatalf("read: %v", err)
		}
		fmt.Println(string(secret.Expose()))
		secret.Zero()

	case "write":
		value := []byte(*secret)
		if *secret == "" {
			line, err := readStdinLine()
			if err != nil {
				log.Fatalf("read secret from stdin: %v", err)
			}
			value = line
		}
		if err := kr.Write(ctx, *service, *name, value); err != nil {
			log.Fatalf("write: %v", err)
		}

	case "delete":
		if err := kr.Delete(ctx, *service, *name); err != nil {
			log.Fatalf("delete: %v", err)
		}

	default:
		log.Fatalf("unknown subcommand %q: expected read, write, or delete", flag.Arg(0))
	}
}

func readStdinLine() ([]byte, error) {
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return nil, scanner.Err()
	}
	return scanner.Bytes(), nil
}

// defaultConfigDir returns the XDG-compliant config directory for the CLI.
// Nothing in main calls it: no flag default or message depends on it, and
// the library itself is stateless on disk beyond what the chosen provider
// persists.
func defaultConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".pimkeyring"
	}
	return filepath.Join(dir, "pimkeyring")
}
