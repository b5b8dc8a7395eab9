// Package htql implements the HTQL search language used by the patient,
// document and condition search endpoints.
//
// A query is a flat sequence of operands and the keywords AND, OR and NOT:
//
//	patient.name:"John Doe" AND condition.code:E11
//	diabetes OR document.title:followup
//	NOT condition.status:resolved
//
// Operands are combined strictly left to right with no precedence and no
// parentheses, so "a OR b AND c" means "(a OR b) AND c". An explicit operator
// applies only to the operand right after it: "a OR b c" means
// "(a OR b) AND c", not "(a OR b) OR c". A bare term with no
// colon matches any searchable attribute of any record kind. Unrecognized
// field expressions contribute nothing.
//
// Parse turns a query into a Predicate tree. The tree can be evaluated in
// memory with Match or compiled into a parameterized SQL condition with
// Compile.
package htql
