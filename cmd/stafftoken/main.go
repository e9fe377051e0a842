// stafftoken は開発用のスタッフJWTを発行する。
//
//	go run ./cmd/stafftoken -role kitchen -sub staff-1
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"tableorder/internal/config"
	"tableorder/internal/domain/model"

	"github.com/golang-jwt/jwt/v5"
)

type jwtIssuer struct {
	secret    []byte
	accessTTL time.Duration
}

func (i *jwtIssuer) Issue(staffID string, role model.Role, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(i.accessTTL)

	claims := jwt.MapClaims{
		"sub":  staffID,
		"role": string(role),
		"iat":  now.Unix(),
		"exp":  expiresAt.Unix(),
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

func main() {
	role := flag.String("role", "kitchen", "kitchen | bar | pastry | cashier | admin")
	sub := flag.String("sub", "dev-staff", "staff id")
	ttl := flag.Duration("ttl", 12*time.Hour, "token lifetime")
	flag.Parse()

	if err := config.LoadEnvFiles(".env", "../.env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET is required")
		os.Exit(1)
	}

	r := model.Role(*role)
	if !r.Valid() {
		fmt.Fprintf(os.Stderr, "unknown role %q\n", *role)
		os.Exit(2)
	}

	issuer := &jwtIssuer{secret: []byte(secret), accessTTL: *ttl}
	token, exp, err := issuer.Issue(*sub, r, time.Now())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "expires at %s\n", exp.Format(time.RFC3339))
	fmt.Println(token)
}
