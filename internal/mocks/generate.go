package mocks

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Repository --dir ../domain/feedcache --output domain/feedcache --outpkg feedcachemock --filename repository_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name ContestSource --dir ../usecase --output usecase --outpkg usecasemock --filename contest_source_mock.go
