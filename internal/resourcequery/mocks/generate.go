package resourcequerymocks

// Mock implementations used by resource query tests
//go:generate mockgen -destination=./mock_interfaces.go -package=resourcequerymocks "github.com/armadaproject/resourcequery/internal/resourcequery/interfaces" RangeFinder,Distributor,ProfileResolver,AccessChecker,TransactionRecorder
