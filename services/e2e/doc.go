// Package e2e runs both services' sync cores against one in-memory bus to check
// that companies and employees converge once in-flight events drain.
package e2e
