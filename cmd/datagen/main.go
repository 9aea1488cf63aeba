// Command datagen writes a synthetic employee data file for local
// development and demos.
// Usage: go run ./cmd/datagen -n 20 -out data/employee_data.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/staffdex/staffdex/internal/domain"
)

var (
	count   = flag.Int("n", 20, "Number of employees to generate")
	outPath = flag.String("out", "data/employee_data.json", "Output file path")
	seed    = flag.Int64("seed", 0, "Random seed, 0 means non-deterministic")
)

var skills = []string{
	"Python", "Java", "AWS", "Docker", "React", "React Native", "TensorFlow", "PyTorch",
	"Kubernetes", "GCP", "Azure", "SQL", "Node", "Go", "Scala", "Spark", "Pandas",
	"scikit-learn", "FastAPI", "Flask", "NLP", "Computer Vision", "MongoDB", "PostgreSQL",
}

var projects = []string{
	"Healthcare Dashboard",
	"Medical Diagnosis Platform",
	"E-commerce Platform",
	"Fraud Detection Service",
	"DevOps Automation",
	"Education Analytics",
	"Gaming Leaderboard",
	"Risk Prediction System",
	"Claims Processing API",
}

var firstNames = []string{
	"Alice", "Bob", "Carol", "David", "Emma", "Frank", "Grace", "Henry",
	"Irene", "Jack", "Karen", "Liam", "Maria", "Noah", "Olivia", "Pedro",
	"Quinn", "Rosa", "Sam", "Tara",
}

var lastNames = []string{
	"Anderson", "Brown", "Chen", "Davis", "Evans", "Fischer", "Garcia",
	"Hoffman", "Ivanov", "Johnson", "Kim", "Lopez", "Miller", "Nguyen",
	"Okafor", "Patel", "Quintero", "Rossi", "Schmidt", "Tanaka",
}

func main() {
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))
	if *seed == 0 {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	employees := make([]domain.EmployeeRecord, 0, *count)
	for i := 0; i < *count; i++ {
		employees = append(employees, randomEmployee(rng))
	}

	if dir := filepath.Dir(*outPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "create output dir: %v\n", err)
			os.Exit(1)
		}
	}

	out, err := json.MarshalIndent(map[string]any{"employees": employees}, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal employees: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*outPath, out, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write %s: %v\n", *outPath, err)
		os.Exit(1)
	}

	fmt.Printf("Generated %d employees -> %s\n", len(employees), *outPath)
}

func randomEmployee(rng *rand.Rand) domain.EmployeeRecord {
	availability := domain.Available
	if rng.Intn(2) == 1 {
		availability = domain.NotAvailable
	}

	return domain.EmployeeRecord{
		ID:              uuid.NewString(),
		Name:            pick(rng, firstNames) + " " + pick(rng, lastNames),
		Skills:          sample(rng, skills, 3+rng.Intn(4)),
		ExperienceYears: 1 + rng.Intn(10),
		Projects:        sample(rng, projects, 1+rng.Intn(3)),
		Availability:    availability,
	}
}

func pick(rng *rand.Rand, from []string) string {
	return from[rng.Intn(len(from))]
}

// sample draws n distinct entries from the pool, preserving draw order.
func sample(rng *rand.Rand, pool []string, n int) []string {
	idx := rng.Perm(len(pool))[:n]
	out := make([]string, n)
	for i, j := range idx {
		out[i] = pool[j]
	}
	return out
}
