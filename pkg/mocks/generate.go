package mocks

//go:generate mockgen -destination=mock_realm.go -package=mocks github.com/realmforge/realmforge/pkg/realm ContentProvider,BaseResolver
//go:generate mockgen -destination=mock_lifecycle.go -package=mocks github.com/realmforge/realmforge/pkg/lifecycle DescriptorRegistry,ResourceLocator
