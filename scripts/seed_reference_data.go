package main

import (
	"fmt"
	"os"

	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/storage"
	"github.com/joho/godotenv"
	"github.com/kataras/golog"
)

func main() {
	if err := godotenv.Load(); err != nil {
		golog.Warn("could not load .env file")
	}

	db := storage.InitializeDB(os.Getenv("DB_CONNECTION_STRING"))

	if err := storage.SeedReferenceData(db); err != nil {
		golog.Fatalf("Error seeding reference data: %v", err)
	}

	fmt.Println("Reference data seeded successfully!")
}
