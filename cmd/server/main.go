package main

import (
	"log"
	"os"

	"potencialize/internal/app"
)

// @title           Potencialize API
// @version         1.0
// @description     CRM, onboarding, projects and support tickets for Potencialize consultancy.
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
func main() {
	if err := app.Run(os.Getenv("CONFIG_PATH")); err != nil {
		log.Fatalf("server: %v", err)
	}
}
