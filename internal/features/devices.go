package features

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

type Device struct {
	Name string
	Path string
	Type DeviceType
}

// デバイスタイプを表す列挙型
type DeviceType int

const (
	DeviceTypeTouch DeviceType = iota
	DeviceTypeMouse
	DeviceTypeKeyboard
)

// DeviceEventType はデバイスイベントの種類を表す
type DeviceEventType int

const (
	DeviceAdded DeviceEventType = iota
	DeviceRemoved
)

// DeviceEvent はデバイスの変更イベントを表す
type DeviceEvent struct {
	Type   DeviceEventType
	Device *Device
	Path   string
}

// DeviceCallback はデバイスイベント発生時に呼び出されるコールバック関数の型
type DeviceCallback func(event DeviceEvent)

// DeviceMonitor はデバイスの接続状態を監視する構造体
type DeviceMonitor struct {
	watcher       *fsnotify.Watcher
	callbacks     []DeviceCallback
	devices       map[string]*Device // パスをキーにしたデバイスマップ
	mutex         sync.RWMutex
	stopChan      chan struct{}
	pollingTicker *time.Ticker
	isRunning     bool
}

// グローバルなDeviceMonitorインスタンス
var (
	globalDeviceMonitor *DeviceMonitor
	deviceMonitorOnce   sync.Once
	deviceMonitorMutex  sync.Mutex
)

// classifyDevice は/dev/input/by-idのエントリ名からデバイスタイプを判定する
func classifyDevice(name string) (DeviceType, bool) {
	name = strings.ToLower(name)
	switch {
	case strings.Contains(name, "touch"):
		return DeviceTypeTouch, true
	case strings.Contains(name, "mouse"):
		return DeviceTypeMouse, true
	case strings.Contains(name, "kbd"):
		return DeviceTypeKeyboard, true
	}
	return 0, false
}

// ScanDevices は基本的なデバイス検出を行い、現在接続されているデバイスリストを返します
// デバイスモニターを使用せず直接検出を行うため、キャッシュの影響を受けません
func ScanDevices() ([]Device, error) {
	entries, err := os.ReadDir("/dev/input/by-id")
	if err != nil {
		return nil, err
	}
	var devices []Device
	for _, entry := range entries {
		// eventが含まれない場合はスキップ
		if !strings.Contains(entry.Name(), "event") {
			continue
		}
		fullPath := "/dev/input/by-id/" + entry.Name()
		realPath, err := os.Readlink(fullPath)
		if err != nil {
			continue
		}

		// 絶対パスを構築
		absPath := ""
		if strings.HasPrefix(realPath, "/") {
			absPath = realPath
		} else {
			absPath = "/dev/input/" + filepath.Base(realPath)
		}

		if devType, ok := classifyDevice(entry.Name()); ok {
			devices = append(devices, Device{Name: entry.Name(), Path: absPath, Type: devType})
		}
	}

	return devices, nil
}

// GetDevices は現在接続されているデバイスを取得する
// モニターが起動済みならそのキャッシュを使い、なければ直接スキャンする
func GetDevices() ([]Device, error) {
	deviceMonitorMutex.Lock()
	monitor := globalDeviceMonitor
	deviceMonitorMutex.Unlock()

	if monitor != nil {
		devices := monitor.GetConnectedDevices()
		if len(devices) > 0 {
			return devices, nil
		}
	}

	return ScanDevices()
}

// NewDeviceMonitor は新しいDeviceMonitorを作成する
func NewDeviceMonitor() (*DeviceMonitor, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &DeviceMonitor{
		watcher:   watcher,
		callbacks: make([]DeviceCallback, 0),
		devices:   make(map[string]*Device),
		stopChan:  make(chan struct{}),
	}, nil
}

// Start はデバイスの監視を開始する
func (dm *DeviceMonitor) Start() error {
	if dm.isRunning {
		return nil // すでに実行中
	}

	log.Println("デバイスモニターを開始します")
	dm.isRunning = true

	// 監視対象のディレクトリを追加
	dirs := []string{
		"/dev/input",
		"/dev/input/by-id",
	}

	for _, dir := range dirs {
		if _, err := os.Stat(dir); !os.IsNotExist(err) {
			if err := dm.watcher.Add(dir); err != nil {
				log.Printf("ディレクトリの監視に失敗しました: %s - %v", dir, err)
			}
		}
	}

	// 初期デバイス一覧を取得
	devices, err := ScanDevices()
	if err != nil {
		log.Printf("初期デバイス一覧の取得に失敗しました: %v", err)
	} else {
		log.Printf("初期デバイス検出: %d 個のデバイスを検出", len(devices))
		dm.updateDeviceList(devices)
	}

	// イベント監視ゴルーチンを起動
	go dm.watchEvents()

	// デバイスのポーリング監視を開始（取りこぼし対策）
	dm.pollingTicker = time.NewTicker(5 * time.Second)
	go dm.runPolling()

	return nil
}

// Stop はデバイスの監視を停止する
func (dm *DeviceMonitor) Stop() {
	if !dm.isRunning {
		return
	}

	log.Println("デバイスモニターを停止します")

	close(dm.stopChan)

	if dm.pollingTicker != nil {
		dm.pollingTicker.Stop()
	}

	dm.watcher.Close()

	dm.isRunning = false
}

// RegisterCallback はデバイスイベントのコールバック関数を登録する
func (dm *DeviceMonitor) RegisterCallback(callback DeviceCallback) {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	dm.callbacks = append(dm.callbacks, callback)
}

// RescanDevices はデバイス一覧を強制的に再スキャンする
func (dm *DeviceMonitor) RescanDevices() {
	devices, err := ScanDevices()
	if err != nil {
		log.Printf("デバイス再スキャンに失敗しました: %v", err)
		return
	}

	dm.updateDeviceList(devices)
}

// runPolling はデバイスの存在を定期的に確認する
// fsnotifyが取りこぼしたイベントをここで補完する
func (dm *DeviceMonitor) runPolling() {
	for {
		select {
		case <-dm.stopChan:
			return
		case <-dm.pollingTicker.C:
			dm.RescanDevices()
		}
	}
}

// updateDeviceList は現在のデバイス一覧を更新し、変更があれば通知する
func (dm *DeviceMonitor) updateDeviceList(newDevices []Device) {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	// 現在のデバイスパスをコピー
	currentDevices := make(map[string]bool)
	for path := range dm.devices {
		currentDevices[path] = true
	}

	// 新しいデバイスを確認
	for i := range newDevices {
		device := &newDevices[i]
		path := device.Path

		if _, exists := dm.devices[path]; !exists {
			dm.devices[path] = device

			log.Printf("新しいデバイスを追加: %s (%s)", device.Name, path)
			dm.notifyCallbacks(DeviceEvent{
				Type:   DeviceAdded,
				Device: device,
				Path:   path,
			})
		} else {
			// 既知のデバイスとしてマーク
			delete(currentDevices, path)
		}
	}

	// 削除されたデバイスを確認
	for path := range currentDevices {
		device := dm.devices[path]
		log.Printf("デバイスを削除: %s (%s)", device.Name, path)
		dm.notifyCallbacks(DeviceEvent{
			Type:   DeviceRemoved,
			Device: device,
			Path:   path,
		})
		delete(dm.devices, path)
	}
}

// notifyCallbacks は登録されているすべてのコールバックに通知する
// mutexをロックした状態で呼ぶこと
func (dm *DeviceMonitor) notifyCallbacks(event DeviceEvent) {
	for _, callback := range dm.callbacks {
		go callback(event)
	}
}

// watchEvents はfsnotifyのイベントを監視する
// 複数のイベントをデバウンスしてまとめて再スキャンする
func (dm *DeviceMonitor) watchEvents() {
	eventDebounceTime := 500 * time.Millisecond
	eventTimer := time.NewTimer(eventDebounceTime)
	eventTimer.Stop() // 初期状態では停止
	pendingRescan := false

	for {
		select {
		case <-dm.stopChan:
			return

		case <-eventTimer.C:
			if pendingRescan {
				pendingRescan = false
				dm.RescanDevices()
			}

		case event, ok := <-dm.watcher.Events:
			if !ok {
				return
			}

			// デバイスに関連するイベントのみ処理
			isDeviceEvent := strings.Contains(event.Name, "/dev/input")
			if isDeviceEvent && (event.Op&fsnotify.Create == fsnotify.Create ||
				event.Op&fsnotify.Remove == fsnotify.Remove) {

				// タイマーをリセットして複数のイベントをバッチ処理
				if !pendingRescan {
					pendingRescan = true
					eventTimer.Reset(eventDebounceTime)
				}
			}

		case err, ok := <-dm.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("ファイルシステム監視エラー: %v", err)
		}
	}
}

// GetConnectedDevices は現在接続されているデバイスのスナップショットを返す
func (dm *DeviceMonitor) GetConnectedDevices() []Device {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	devices := make([]Device, 0, len(dm.devices))
	for _, device := range dm.devices {
		devices = append(devices, *device)
	}

	return devices
}

// GetDeviceMonitor はグローバルDeviceMonitorインスタンスを返す（必要に応じて作成）
func GetDeviceMonitor() (*DeviceMonitor, error) {
	deviceMonitorMutex.Lock()
	if globalDeviceMonitor != nil {
		monitor := globalDeviceMonitor
		deviceMonitorMutex.Unlock()
		return monitor, nil
	}
	deviceMonitorMutex.Unlock()

	var initErr error
	deviceMonitorOnce.Do(func() {
		deviceMonitor, err := NewDeviceMonitor()
		if err != nil {
			initErr = err
			return
		}

		if err := deviceMonitor.Start(); err != nil {
			initErr = err
			return
		}

		deviceMonitorMutex.Lock()
		globalDeviceMonitor = deviceMonitor
		deviceMonitorMutex.Unlock()
	})

	if initErr != nil {
		return nil, initErr
	}

	deviceMonitorMutex.Lock()
	monitor := globalDeviceMonitor
	deviceMonitorMutex.Unlock()

	if monitor == nil {
		return nil, fmt.Errorf("デバイスモニターの初期化に失敗しました")
	}

	return monitor, nil
}
