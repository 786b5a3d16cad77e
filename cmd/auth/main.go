package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/aussiebroadwan/authcore/internal/auth/app"
	"github.com/aussiebroadwan/authcore/pkg/cryptox"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "keygen" {
		if err := keygen(os.Args[2:]); err != nil {
			log.Fatalf("keygen: %v", err)
		}
		return
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}

// keygen writes a fresh PKCS#8 RSA private key for keys.source=file, and its
// public half next to it as <out>.pub.
func keygen(args []string) error {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	out := fs.String("out", "jwtRS256.key", "output file, - for stdout")
	bits := fs.Int("bits", 2048, "RSA key size")
	if err := fs.Parse(args); err != nil {
		return err
	}

	pemKey, err := cryptox.GenerateRSAKeyPKCS8(*bits)
	if err != nil {
		return err
	}

	if *out == "-" {
		_, err = os.Stdout.Write(pemKey)
		return err
	}

	pubKey, err := cryptox.RSAPublicKeyPEM(pemKey)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, pemKey, 0o600); err != nil {
		return err
	}
	if err := os.WriteFile(*out+".pub", pubKey, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "wrote %d-bit RSA key to %s (public key %s.pub)\n", *bits, *out, *out)
	return nil
}
