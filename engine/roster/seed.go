package roster

import (
	"context"
	"fmt"
)

// DefaultRoster is the KLM Solutions team the tool ships with. Teams
// replace it by seeding their own directory.
func DefaultRoster() []Employee {
	return []Employee{
		{Name: "Nandhakumar", Email: "nandhakumar@klmsolutions.in", Title: "Director"},
		{Name: "Dhanush", Email: "dhanush@klmsolutions.in", Title: "Engineer"},
		{Name: "Shubaritha", Email: "shubaritha@klmsolutions.in", Title: "Engineer"},
		{Name: "Subashree", Email: "subashree@klmsolutions.in", Title: "Engineer"},
		{Name: "Prateeka", Email: "prateeka@klmsolutions.in", Title: "Engineer"},
		{Name: "Akshara Shri", Email: "akshara@klmsolutions.in", Title: "Engineer"},
	}
}

// Seed ensures the given employees exist and wires every non-director
// up to the first entry as approver. Safe to run on every boot; MERGE
// keeps it idempotent.
func (s *Store) Seed(ctx context.Context, employees []Employee) error {
	if len(employees) == 0 {
		return nil
	}
	for _, e := range employees {
		if err := s.EnsureEmployee(ctx, e); err != nil {
			return err
		}
	}
	approver := employees[0]
	for _, e := range employees[1:] {
		if err := s.SetApprover(ctx, approver.Email, e.Email); err != nil {
			return fmt.Errorf("roster: seed approver edge: %w", err)
		}
	}
	return nil
}
