// Package models maps the domain types onto gorm tables. Domain entities
// carry no gorm tags; each model converts with ToDomain and FromDomain, and
// repositories read and write only through models.
package models
