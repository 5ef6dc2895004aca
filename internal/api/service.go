package api

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/char5742/abs2rel/internal/config"
	"github.com/char5742/abs2rel/internal/features"
	"github.com/char5742/abs2rel/internal/pipeline"
	"github.com/char5742/abs2rel/internal/processor"
)

// Abs2RelService は絶対座標→相対移動の変換サービスを管理する構造体
// 設定のマッピングごとに1つのフィルターインスタンスと転送ループを持つ
type Abs2RelService struct {
	cfg         *config.Config
	stopChan    chan struct{}
	running     bool
	statusMutex sync.RWMutex
	mouse       features.Mouse
	touchPads   []features.TouchPad
	wg          sync.WaitGroup
}

// NewAbs2RelService は新しい変換サービスを作成する
func NewAbs2RelService(cfg *config.Config) *Abs2RelService {
	return &Abs2RelService{
		cfg:      cfg,
		stopChan: make(chan struct{}),
		running:  false,
	}
}

// Start は変換サービスを開始する
func (s *Abs2RelService) Start() error {
	s.statusMutex.Lock()
	defer s.statusMutex.Unlock()

	if s.running {
		return fmt.Errorf("サービスは既に実行中です")
	}

	if len(s.cfg.Mappings) == 0 {
		return fmt.Errorf("マッピングが設定されていません")
	}

	// 仮想マウスデバイスの作成
	mouse, err := features.CreateMouse(s.cfg.Output.UinputPath, []byte(s.cfg.Output.DeviceName))
	if err != nil {
		return fmt.Errorf("仮想マウスの作成に失敗しました: %v", err)
	}
	s.mouse = mouse

	// デバイス一覧の取得
	devices, err := features.GetDevices()
	if err != nil {
		s.mouse.Close()
		return fmt.Errorf("デバイス一覧の取得に失敗しました: %v", err)
	}

	// マッピングごとに入力デバイスを開いてフィルターインスタンスを作成
	s.touchPads = nil
	var pipelines []*pipeline.Pipeline

	closeAll := func() {
		for _, pad := range s.touchPads {
			pad.Close()
		}
		s.touchPads = nil
		s.mouse.Close()
	}

	for _, mapping := range s.cfg.Mappings {
		path, err := resolveDevicePath(mapping, s.cfg.DevicePrefs, devices)
		if err != nil {
			closeAll()
			return fmt.Errorf("マッピング %q のデバイス解決に失敗しました: %v", mapping.Name, err)
		}

		pad, err := features.OpenTouchPad(path)
		if err != nil {
			closeAll()
			return fmt.Errorf("タッチデバイスのオープンに失敗しました[path=%s]: %v", path, err)
		}

		// 生の絶対座標イベントが他の消費者へ届かないよう専有する
		if err := pad.Grab(); err != nil {
			pad.Close()
			closeAll()
			return fmt.Errorf("タッチデバイスの専有に失敗しました[path=%s]: %v", path, err)
		}

		log.Printf("マッピング %q: %s (suppress_btn_touch=%v, suppress_btn0=%v)",
			mapping.Name, path, mapping.SuppressBtnTouch, mapping.SuppressBtn0)

		s.touchPads = append(s.touchPads, pad)

		proc := processor.New(processor.Config{
			SuppressBtnTouch: mapping.SuppressBtnTouch,
			SuppressBtn0:     mapping.SuppressBtn0,
		})
		pipelines = append(pipelines, pipeline.New(proc, pad, s.mouse))
	}

	s.stopChan = make(chan struct{})
	s.running = true

	// マッピングごとの転送ループを開始
	for _, pl := range pipelines {
		s.wg.Add(1)
		go func(pl *pipeline.Pipeline) {
			defer s.wg.Done()
			pl.Run(s.stopChan)
		}(pl)
	}

	// すべてのループが終了したらデバイスをクローズ
	// 再起動時の差し替えと競合しないよう、この時点のデバイスを束縛しておく
	pads := s.touchPads
	go func() {
		s.wg.Wait()
		for _, pad := range pads {
			pad.Close()
		}
		mouse.Close()
		log.Println("変換サービスを停止しました")
	}()

	log.Println("変換サービスを開始しました")
	return nil
}

// Stop は変換サービスを停止する
func (s *Abs2RelService) Stop() error {
	s.statusMutex.Lock()
	defer s.statusMutex.Unlock()

	if !s.running {
		return fmt.Errorf("サービスは実行されていません")
	}

	close(s.stopChan)
	s.running = false

	// デバイスのクローズは転送ループの終了後に行われる

	return nil
}

// IsRunning はサービスが実行中かどうかを返す
func (s *Abs2RelService) IsRunning() bool {
	s.statusMutex.RLock()
	defer s.statusMutex.RUnlock()
	return s.running
}

// resolveDevicePath はマッピング設定から入力デバイスのパスを決定する
// 絶対パス指定はそのまま使い、名前指定は検出済みデバイスから探す
// 指定がなければ優先デバイス、それもなければ最初のタッチデバイスを使う
func resolveDevicePath(mapping config.MappingConfig, prefs config.DevicePrefsConfig, devices []features.Device) (string, error) {
	if strings.HasPrefix(mapping.Device, "/") {
		return mapping.Device, nil
	}

	var firstTouch *features.Device
	var byName *features.Device
	var preferred *features.Device

	for i := range devices {
		device := &devices[i]
		if device.Type != features.DeviceTypeTouch {
			continue
		}
		if firstTouch == nil {
			firstTouch = device
		}
		if mapping.Device != "" && device.Name == mapping.Device {
			byName = device
		}
		if prefs.PreferredTouchDevice != "" && device.Name == prefs.PreferredTouchDevice {
			preferred = device
		}
	}

	switch {
	case mapping.Device != "":
		if byName == nil {
			return "", fmt.Errorf("デバイス %q が見つかりませんでした", mapping.Device)
		}
		return byName.Path, nil
	case preferred != nil:
		return preferred.Path, nil
	case firstTouch != nil:
		return firstTouch.Path, nil
	}

	return "", fmt.Errorf("タッチデバイスが見つかりませんでした")
}
