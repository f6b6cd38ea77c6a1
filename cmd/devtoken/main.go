// devtoken emite un JWT firmado con JWT_SECRET para probar la API en local.
//
// Uso: go run ./cmd/devtoken -role sales_rep -email jane@example.com
// Escribe el token en stdout.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/jhoicas/pipeline-api/internal/domain/entity"
	"github.com/jhoicas/pipeline-api/pkg/config"
	"github.com/jhoicas/pipeline-api/pkg/jwt"
)

func main() {
	role := flag.String("role", entity.RoleOwner, "rol del actor")
	email := flag.String("email", "", "email del actor (también identifica al comercial)")
	name := flag.String("name", "", "nombre del actor")
	id := flag.String("id", "", "id del actor (por defecto un UUID nuevo)")
	flag.Parse()

	if !entity.IsValidRole(*role) {
		fmt.Fprintf(os.Stderr, "rol desconocido %q; válidos: %v\n", *role, entity.Roles)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}

	sub := *id
	if sub == "" {
		sub = uuid.NewString()
	}
	tok, err := jwt.Generate(cfg.JWT.Secret, jwt.Identity{
		ID:    sub,
		Name:  *name,
		Email: *email,
		Role:  *role,
	}, cfg.JWT.Issuer, cfg.JWT.Expiration)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Generar token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
