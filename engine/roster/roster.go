// Package roster is the Neo4j-backed employee directory. It resolves
// names to emails for form submissions and tracks who approves whose
// leave.
package roster

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// Employee is a directory entry.
type Employee struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Title string `json:"title,omitempty"`
}

// Store provides roster operations over Neo4j.
type Store struct {
	driver neo4j.DriverWithContext
}

// New creates a roster Store.
func New(driver neo4j.DriverWithContext) *Store {
	return &Store{driver: driver}
}

// EnsureEmployee creates or updates an employee node keyed by email.
func (s *Store) EnsureEmployee(ctx context.Context, e Employee) error {
	sess := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	cypher := `MERGE (n:Employee {email: $email}) SET n.name = $name, n.title = $title`
	_, err := sess.Run(ctx, cypher, map[string]any{
		"email": strings.ToLower(e.Email),
		"name":  e.Name,
		"title": e.Title,
	})
	if err != nil {
		return fmt.Errorf("roster: ensure employee %s: %w", e.Email, err)
	}
	return nil
}

// SetApprover records that approver approves leave for employee, both
// referenced by email.
func (s *Store) SetApprover(ctx context.Context, approverEmail, employeeEmail string) error {
	sess := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	cypher := `MATCH (a:Employee {email: $approver}), (e:Employee {email: $employee})
		 MERGE (a)-[:APPROVES]->(e)`
	_, err := sess.Run(ctx, cypher, map[string]any{
		"approver": strings.ToLower(approverEmail),
		"employee": strings.ToLower(employeeEmail),
	})
	if err != nil {
		return fmt.Errorf("roster: set approver: %w", err)
	}
	return nil
}

// FindByName returns the employee with the given name (case-insensitive
// exact match).
func (s *Store) FindByName(ctx context.Context, name string) (Employee, error) {
	sess := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	cypher := `MATCH (n:Employee) WHERE toLower(n.name) = toLower($name) RETURN n LIMIT 1`
	result, err := sess.Run(ctx, cypher, map[string]any{"name": name})
	if err != nil {
		return Employee{}, fmt.Errorf("roster: find %q: %w", name, err)
	}
	if !result.Next(ctx) {
		return Employee{}, fmt.Errorf("roster: employee %q not found", name)
	}
	return employeeFromRecord(result.Record())
}

// LookupEmail resolves a name to an email, the roster's main job when a
// form omits the email.
func (s *Store) LookupEmail(ctx context.Context, name string) (string, error) {
	e, err := s.FindByName(ctx, name)
	if err != nil {
		return "", err
	}
	return e.Email, nil
}

// Approvers returns everyone who may approve leave for the named employee.
func (s *Store) Approvers(ctx context.Context, employeeEmail string) ([]Employee, error) {
	sess := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	cypher := `MATCH (a:Employee)-[:APPROVES]->(e:Employee {email: $email}) RETURN a`
	result, err := sess.Run(ctx, cypher, map[string]any{"email": strings.ToLower(employeeEmail)})
	if err != nil {
		return nil, fmt.Errorf("roster: approvers of %s: %w", employeeEmail, err)
	}
	return collectEmployees(ctx, result)
}

// All returns the full roster, sorted by name.
func (s *Store) All(ctx context.Context) ([]Employee, error) {
	sess := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	result, err := sess.Run(ctx, `MATCH (n:Employee) RETURN n ORDER BY n.name`, nil)
	if err != nil {
		return nil, fmt.Errorf("roster: list: %w", err)
	}
	return collectEmployees(ctx, result)
}

func collectEmployees(ctx context.Context, result neo4j.ResultWithContext) ([]Employee, error) {
	var out []Employee
	for result.Next(ctx) {
		e, err := employeeFromRecord(result.Record())
		if err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func employeeFromRecord(rec *neo4j.Record) (Employee, error) {
	raw, ok := rec.Get("n")
	if !ok {
		raw, ok = rec.Get("a")
	}
	if !ok {
		return Employee{}, fmt.Errorf("roster: no node in record")
	}
	node, ok := raw.(dbtype.Node)
	if !ok {
		return Employee{}, fmt.Errorf("roster: unexpected node type %T", raw)
	}
	return employeeFromProps(node.Props), nil
}

func employeeFromProps(props map[string]any) Employee {
	e := Employee{}
	if v, ok := props["name"].(string); ok {
		e.Name = v
	}
	if v, ok := props["email"].(string); ok {
		e.Email = v
	}
	if v, ok := props["title"].(string); ok {
		e.Title = v
	}
	return e
}
