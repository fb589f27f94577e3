// Package mocks provides gomock-generated mocks for the snowdash ports.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our port interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	table := mocks.NewMockTableAPI(ctrl)
//	table.EXPECT().List(gomock.Any(), "incident", gomock.Any()).Return(rows, nil)
package mocks

// Generate mock for TableAPI interface from internal/ports package.
// This creates MockTableAPI with methods for all TableAPI interface methods:
// List, Get, Create, Update, Delete, UserProfile
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=table_api_mock.go github.com/target/snowdash/internal/ports TableAPI

// Generate mock for TableClientFactory interface from internal/ports package.
// This creates MockTableClientFactory with methods for all TableClientFactory interface methods:
// ForCredential
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=table_client_factory_mock.go github.com/target/snowdash/internal/ports TableClientFactory
