/*
 * @module service/ingest/ingest_service_test
 * @description 数据集流式接入服务测试，验证订阅生命周期、消息规整写入与统计更新
 * @architecture 测试层
 * @documentReference ai_docs/quality_engine.md
 * @stateFlow 进程内消息源同步投递 -> 断言数据集与订阅统计
 * @rules 不依赖真实消息中间件，消息源与分布式锁均使用进程内替身
 * @dependencies github.com/stretchr/testify
 * @refs ingest_service.go
 */

package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"dataquality-service/service/dataset"
	"dataquality-service/service/distributed_lock"
	"dataquality-service/service/models"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

// fakeSource 进程内消息源替身，消息由测试同步投递
type fakeSource struct {
	mu       sync.Mutex
	handlers map[string]func([]byte) error
}

func newFakeSource() *fakeSource {
	return &fakeSource{handlers: make(map[string]func([]byte) error)}
}

func (f *fakeSource) Subscribe(topic string, handler func(payload []byte) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.handlers[topic]; exists {
		return fmt.Errorf("主题 %s 已被订阅", topic)
	}
	f.handlers[topic] = handler
	return nil
}

func (f *fakeSource) Unsubscribe(topic string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.handlers[topic]; !exists {
		return fmt.Errorf("主题 %s 未被订阅", topic)
	}
	delete(f.handlers, topic)
	return nil
}

func (f *fakeSource) deliver(topic string, payload []byte) error {
	f.mu.Lock()
	handler, exists := f.handlers[topic]
	f.mu.Unlock()
	if !exists {
		return fmt.Errorf("主题 %s 没有注册处理器", topic)
	}
	return handler(payload)
}

func (f *fakeSource) subscribed(topic string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, exists := f.handlers[topic]
	return exists
}

// testLock 进程内分布式锁替身
type testLock struct {
	mu   sync.Mutex
	held map[string]bool
}

func (l *testLock) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return false, nil
	}
	l.held[key] = true
	return true, nil
}

func (l *testLock) Unlock(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	return nil
}

func (l *testLock) Refresh(ctx context.Context, key string, ttl time.Duration) error {
	return nil
}

func (l *testLock) IsLocked(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held[key], nil
}

type IngestServiceTestSuite struct {
	suite.Suite
	testDB         *models.ModelTestDB
	factory        *models.ModelTestDataFactory
	datasetService *dataset.DatasetService
	service        *IngestService
	source         *fakeSource
}

func (suite *IngestServiceTestSuite) SetupSuite() {
	suite.testDB = models.NewModelTestDB()
	suite.factory = models.NewModelTestDataFactory(suite.testDB.DB)
	suite.datasetService = dataset.NewDatasetService(suite.testDB.DB)
}

func (suite *IngestServiceTestSuite) TearDownSuite() {
	suite.testDB.Close()
}

func (suite *IngestServiceTestSuite) SetupTest() {
	suite.testDB.CleanDB()
	suite.source = newFakeSource()
	suite.service = NewIngestService(suite.testDB.DB, suite.datasetService)
	suite.service.RegisterSource(models.IngestSourceKafka, suite.source)
}

func (suite *IngestServiceTestSuite) TestCreateSubscriptionStartsConsuming() {
	ds := suite.factory.CreateDataset()

	sub := &models.IngestSubscription{
		DatasetID: ds.ID,
		Source:    models.IngestSourceKafka,
		Topic:     "practo.doctors",
	}
	suite.Require().NoError(suite.service.CreateSubscription(sub))
	suite.True(suite.source.subscribed("practo.doctors"))

	payload, err := json.Marshal(map[string]interface{}{
		"name":           " Dr. Asha Rao ",
		"specialization": "Dentist",
		"rating":         4.5,
		"reviews_count":  12,
		"clinics": []map[string]interface{}{
			{"name": "Smile Studio", "address": "12 MG Road", "google_maps_link": "https://maps.example.com/smile"},
		},
		"phone": "+91 9810012345",
	})
	suite.Require().NoError(err)
	suite.Require().NoError(suite.source.deliver("practo.doctors", payload))

	records, total, err := suite.datasetService.GetRecords(ds.ID, 1, 10)
	suite.Require().NoError(err)
	suite.Equal(int64(1), total)
	suite.Equal("Dr. Asha Rao", records[0].Payload["name"])
	suite.Equal("12 MG Road", records[0].Payload["address"])
	suite.InDelta(4.5, records[0].Payload["rating"], 0.001)
	suite.Equal("stream:kafka", records[0].SourceFile)

	reloadedDataset, err := suite.datasetService.GetDatasetByID(ds.ID)
	suite.Require().NoError(err)
	suite.Equal(int64(1), reloadedDataset.RecordCount)

	var reloaded models.IngestSubscription
	suite.Require().NoError(suite.testDB.DB.First(&reloaded, "id = ?", sub.ID).Error)
	suite.Equal(int64(1), reloaded.RecordsIngested)
	suite.Equal(int64(0), reloaded.RecordsDropped)
	suite.NotNil(reloaded.LastMessageAt)
	suite.Empty(reloaded.LastError)
}

func (suite *IngestServiceTestSuite) TestCreateSubscriptionValidation() {
	ds := suite.factory.CreateDataset()

	err := suite.service.CreateSubscription(&models.IngestSubscription{
		Source: models.IngestSourceKafka, Topic: "practo.doctors",
	})
	suite.ErrorContains(err, "必须指定目标数据集")

	err = suite.service.CreateSubscription(&models.IngestSubscription{
		DatasetID: ds.ID, Source: models.IngestSourceKafka,
	})
	suite.ErrorContains(err, "订阅主题不能为空")

	err = suite.service.CreateSubscription(&models.IngestSubscription{
		DatasetID: ds.ID, Source: "rabbitmq", Topic: "practo.doctors",
	})
	suite.ErrorContains(err, "不支持的接入来源")

	err = suite.service.CreateSubscription(&models.IngestSubscription{
		DatasetID: "missing", Source: models.IngestSourceKafka, Topic: "practo.doctors",
	})
	suite.ErrorContains(err, "目标数据集不存在")

	first := &models.IngestSubscription{
		DatasetID: ds.ID, Source: models.IngestSourceKafka, Topic: "practo.doctors",
	}
	suite.Require().NoError(suite.service.CreateSubscription(first))

	dup := &models.IngestSubscription{
		DatasetID: ds.ID, Source: models.IngestSourceKafka, Topic: "practo.doctors",
	}
	suite.ErrorContains(suite.service.CreateSubscription(dup), "已存在")
}

func (suite *IngestServiceTestSuite) TestArrayPayloadDropsInvalidRecords() {
	ds := suite.factory.CreateDataset()
	sub := &models.IngestSubscription{
		DatasetID: ds.ID, Source: models.IngestSourceKafka, Topic: "practo.doctors",
	}
	suite.Require().NoError(suite.service.CreateSubscription(sub))

	payload, err := json.Marshal([]map[string]interface{}{
		{"name": "Dr. Asha Rao", "rating": 4.5},
		{"name": "   ", "rating": 3.0},
		{"name": "Dr. Vikram Shetty", "rating": 4.1},
	})
	suite.Require().NoError(err)
	suite.Require().NoError(suite.source.deliver("practo.doctors", payload))

	_, total, err := suite.datasetService.GetRecords(ds.ID, 1, 10)
	suite.Require().NoError(err)
	suite.Equal(int64(2), total)

	var reloaded models.IngestSubscription
	suite.Require().NoError(suite.testDB.DB.First(&reloaded, "id = ?", sub.ID).Error)
	suite.Equal(int64(2), reloaded.RecordsIngested)
	suite.Equal(int64(1), reloaded.RecordsDropped)
}

func (suite *IngestServiceTestSuite) TestInvalidPayloadCountsAsDropped() {
	ds := suite.factory.CreateDataset()
	sub := &models.IngestSubscription{
		DatasetID: ds.ID, Source: models.IngestSourceKafka, Topic: "practo.doctors",
	}
	suite.Require().NoError(suite.service.CreateSubscription(sub))

	err := suite.source.deliver("practo.doctors", []byte("not-json"))
	suite.ErrorContains(err, "解析接入消息失败")

	err = suite.source.deliver("practo.doctors", []byte("[1, 2]"))
	suite.ErrorContains(err, "数组元素必须是对象")

	_, total, err := suite.datasetService.GetRecords(ds.ID, 1, 10)
	suite.Require().NoError(err)
	suite.Equal(int64(0), total)

	var reloaded models.IngestSubscription
	suite.Require().NoError(suite.testDB.DB.First(&reloaded, "id = ?", sub.ID).Error)
	suite.Equal(int64(2), reloaded.RecordsDropped)
	suite.Contains(reloaded.LastError, "解析接入消息失败")
}

func (suite *IngestServiceTestSuite) TestSubscriptionLifecycle() {
	ds := suite.factory.CreateDataset()
	sub := &models.IngestSubscription{
		DatasetID: ds.ID, Source: models.IngestSourceKafka, Topic: "practo.doctors",
	}
	suite.Require().NoError(suite.service.CreateSubscription(sub))
	suite.True(suite.source.subscribed("practo.doctors"))

	suite.Require().NoError(suite.service.StopSubscription(sub.ID))
	suite.False(suite.source.subscribed("practo.doctors"))

	var reloaded models.IngestSubscription
	suite.Require().NoError(suite.testDB.DB.First(&reloaded, "id = ?", sub.ID).Error)
	suite.False(reloaded.IsEnabled)

	suite.Require().NoError(suite.service.StartSubscription(sub.ID))
	suite.True(suite.source.subscribed("practo.doctors"))

	suite.Require().NoError(suite.testDB.DB.First(&reloaded, "id = ?", sub.ID).Error)
	suite.True(reloaded.IsEnabled)

	suite.Require().NoError(suite.service.DeleteSubscription(sub.ID))
	suite.False(suite.source.subscribed("practo.doctors"))

	err := suite.testDB.DB.First(&models.IngestSubscription{}, "id = ?", sub.ID).Error
	suite.ErrorIs(err, gorm.ErrRecordNotFound)
}

func (suite *IngestServiceTestSuite) TestStartBootsOnlyEnabledSubscriptions() {
	ds := suite.factory.CreateDataset()

	enabled := &models.IngestSubscription{
		DatasetID: ds.ID, Source: models.IngestSourceKafka, Topic: "practo.enabled", IsEnabled: true,
	}
	suite.Require().NoError(suite.testDB.DB.Create(enabled).Error)

	disabled := &models.IngestSubscription{
		DatasetID: ds.ID, Source: models.IngestSourceKafka, Topic: "practo.disabled",
	}
	suite.Require().NoError(suite.testDB.DB.Create(disabled).Error)
	suite.Require().NoError(suite.testDB.DB.Model(disabled).Update("is_enabled", false).Error)

	suite.service.Start()

	suite.True(suite.source.subscribed("practo.enabled"))
	suite.False(suite.source.subscribed("practo.disabled"))

	suite.service.Stop()
	suite.False(suite.source.subscribed("practo.enabled"))
}

func (suite *IngestServiceTestSuite) TestAppendRunsUnderDistributedLock() {
	lock := &testLock{held: make(map[string]bool)}
	suite.service.SetLockExecutor(distributed_lock.NewLockExecutor(lock))

	ds := suite.factory.CreateDataset()
	sub := &models.IngestSubscription{
		DatasetID: ds.ID, Source: models.IngestSourceKafka, Topic: "practo.doctors",
	}
	suite.Require().NoError(suite.service.CreateSubscription(sub))

	payload, err := json.Marshal(map[string]interface{}{"name": "Dr. Asha Rao", "rating": 4.5})
	suite.Require().NoError(err)
	suite.Require().NoError(suite.source.deliver("practo.doctors", payload))

	_, total, err := suite.datasetService.GetRecords(ds.ID, 1, 10)
	suite.Require().NoError(err)
	suite.Equal(int64(1), total)

	// 写入完成后锁应当已释放
	locked, err := lock.IsLocked(context.Background(), "dataset_ingest:"+ds.ID)
	suite.Require().NoError(err)
	suite.False(locked)
}

func (suite *IngestServiceTestSuite) TestUnavailableSourceKeepsSubscription() {
	ds := suite.factory.CreateDataset()

	// mqtt来源未注册，订阅保留并记录启动错误
	sub := &models.IngestSubscription{
		DatasetID: ds.ID, Source: models.IngestSourceMQTT, Topic: "practo/doctors",
	}
	suite.Require().NoError(suite.service.CreateSubscription(sub))

	var reloaded models.IngestSubscription
	suite.Require().NoError(suite.testDB.DB.First(&reloaded, "id = ?", sub.ID).Error)
	suite.Contains(reloaded.LastError, "不可用")

	// 来源恢复后可以重新启动消费
	mqttSource := newFakeSource()
	suite.service.RegisterSource(models.IngestSourceMQTT, mqttSource)
	suite.Require().NoError(suite.service.StartSubscription(sub.ID))
	suite.True(mqttSource.subscribed("practo/doctors"))

	suite.Require().NoError(suite.testDB.DB.First(&reloaded, "id = ?", sub.ID).Error)
	suite.Empty(reloaded.LastError)
}

func TestIngestService(t *testing.T) {
	suite.Run(t, new(IngestServiceTestSuite))
}
