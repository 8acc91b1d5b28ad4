// Package events defines the relationship events exchanged between the company and
// employee services. Events carry identifiers only and have no identity of their own.
package events

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/staffsync/staffsync/libs/syncerr"
)

const (
	TopicEmployeeChangeCompany = "employee-change-company"
	TopicEmployeeClearCompany  = "employee-clear-company"
	TopicCompanyAddEmployee    = "company-add-employee"
	TopicCompanyRemoveEmployee = "company-remove-employee"
)

// MemberAssigned: this employee now belongs to this company.
type MemberAssigned struct {
	EmployeeID uuid.UUID `json:"employeeId"`
	CompanyID  uuid.UUID `json:"companyId"`
}

func (e MemberAssigned) Topic() string { return TopicEmployeeChangeCompany }
func (e MemberAssigned) Key() string   { return e.EmployeeID.String() }

func (e MemberAssigned) Validate() error {
	return requireIDs(e.EmployeeID, e.CompanyID)
}

// MemberCleared: this employee no longer belongs to any company.
// CompanyID optionally names the former company; consumers then clear only when the
// employee still points at it, so a late clear cannot undo a newer assignment.
type MemberCleared struct {
	EmployeeID uuid.UUID  `json:"employeeId"`
	CompanyID  *uuid.UUID `json:"companyId,omitempty"`
}

func (e MemberCleared) Topic() string { return TopicEmployeeClearCompany }
func (e MemberCleared) Key() string   { return e.EmployeeID.String() }

func (e MemberCleared) Validate() error {
	return requireIDs(e.EmployeeID)
}

// CompanyMemberAdded is published by the employee side when an employee joins a company.
type CompanyMemberAdded struct {
	CompanyID  uuid.UUID `json:"companyId"`
	EmployeeID uuid.UUID `json:"employeeId"`
}

func (e CompanyMemberAdded) Topic() string { return TopicCompanyAddEmployee }
func (e CompanyMemberAdded) Key() string   { return e.CompanyID.String() }

func (e CompanyMemberAdded) Validate() error {
	return requireIDs(e.CompanyID, e.EmployeeID)
}

// CompanyMemberRemoved is published by the employee side when an employee leaves a company.
type CompanyMemberRemoved struct {
	CompanyID  uuid.UUID `json:"companyId"`
	EmployeeID uuid.UUID `json:"employeeId"`
}

func (e CompanyMemberRemoved) Topic() string { return TopicCompanyRemoveEmployee }
func (e CompanyMemberRemoved) Key() string   { return e.CompanyID.String() }

func (e CompanyMemberRemoved) Validate() error {
	return requireIDs(e.CompanyID, e.EmployeeID)
}

// Decode unmarshals a payload and rejects events with missing identifiers.
func Decode[T interface{ Validate() error }](value []byte) (T, error) {
	var evt T
	if err := json.Unmarshal(value, &evt); err != nil {
		return evt, fmt.Errorf("%w: %w", syncerr.ErrInvalidEvent, err)
	}
	if err := evt.Validate(); err != nil {
		return evt, err
	}
	return evt, nil
}

func requireIDs(ids ...uuid.UUID) error {
	for _, id := range ids {
		if id == uuid.Nil {
			return fmt.Errorf("%w: missing identifier", syncerr.ErrInvalidEvent)
		}
	}
	return nil
}
