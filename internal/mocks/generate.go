package mocks

//go:generate mockery --name ReadingStore --srcpkg github.com/sensorwatch-lab/sensorwatch/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter
//go:generate mockery --name Provider --srcpkg github.com/sensorwatch-lab/sensorwatch/internal/assistant --output ./assistant --outpkg assistantmocks --with-expecter
