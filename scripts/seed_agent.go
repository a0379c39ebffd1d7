package main

import (
	"fmt"
	"log"

	"skyport-server/models"
	"skyport-server/storage"

	"golang.org/x/crypto/bcrypt"
)

// Seeds the first support agent so the approval flow has someone to run it.
func main() {
	storage.InitializeDB()

	hashed, err := bcrypt.GenerateFromPassword([]byte("123456"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Error hashing seed password: %v", err)
	}

	agent := models.Agent{
		FullName: "Selam Fikru",
		Email:    "agent@example.com",
		Password: string(hashed),
	}
	if err := storage.DB.Create(&agent).Error; err != nil {
		log.Fatalf("Error creating seed agent: %v", err)
	}

	fmt.Printf("Agent created: %s (id=%d)\n", agent.Email, agent.ID)
}
