// Package domain contains the core conversation entities, value objects, and
// domain rules of the application. It is independent of any specific
// infrastructure or delivery mechanism.
package domain
