package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config はアプリケーション全体の設定を表す構造体
type Config struct {
	Mappings    []MappingConfig   `toml:"mappings"`
	Output      OutputConfig      `toml:"output"`
	DevicePrefs DevicePrefsConfig `toml:"device_prefs"`
}

// MappingConfig は1つのフィルターインスタンスの設定
// 起動時にこのリストからインスタンスが1つずつ生成される
type MappingConfig struct {
	Name             string `toml:"name"`               // マッピングの識別名
	Device           string `toml:"device"`             // 入力元デバイス（名前またはパス）
	SuppressBtnTouch bool   `toml:"suppress_btn_touch"` // BTN_TOUCHを下流へ流さない
	SuppressBtn0     bool   `toml:"suppress_btn0"`      // BTN_0を下流へ流さない
}

// OutputConfig は仮想出力デバイスの設定
type OutputConfig struct {
	DeviceName string `toml:"device_name"` // 仮想ポインターデバイスの名前
	UinputPath string `toml:"uinput_path"` // uinputデバイスファイルのパス
}

// DevicePrefsConfig はデバイス選択の設定
type DevicePrefsConfig struct {
	PreferredTouchDevice string `toml:"preferred_touch_device"` // 優先するタッチデバイス名
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() *Config {
	return &Config{
		Mappings: []MappingConfig{
			{
				Name:             "default",
				Device:           "",
				SuppressBtnTouch: false,
				SuppressBtn0:     false,
			},
		},
		Output: OutputConfig{
			DeviceName: "Abs2RelPointer",
			UinputPath: "/dev/uinput",
		},
		DevicePrefs: DevicePrefsConfig{
			PreferredTouchDevice: "",
		},
	}
}

// GetDefaultConfigDir はデフォルトの設定ディレクトリを返す
func GetDefaultConfigDir() (string, error) {
	userConfigDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(userConfigDir, "abs2rel"), nil
}

// LoadConfig は設定ファイルから設定を読み込む
func LoadConfig(configPath string) (*Config, error) {
	// デフォルト設定を用意
	config := DefaultConfig()

	// ファイルが存在しない場合はデフォルト設定を保存して返す
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// 設定ディレクトリの作成
		configDir := filepath.Dir(configPath)
		if err := os.MkdirAll(configDir, 0755); err != nil {
			return config, err
		}

		// デフォルト設定の保存
		if err := SaveConfig(configPath, config); err != nil {
			return config, err
		}

		return config, nil
	}

	// 設定ファイルの読み込み
	if _, err := toml.DecodeFile(configPath, config); err != nil {
		return config, err
	}

	return config, nil
}

// SaveConfig は設定をTOMLファイルに保存する
func SaveConfig(configPath string, config *Config) error {
	// 設定ディレクトリの作成
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	// ファイルを開く（なければ作成）
	f, err := os.Create(configPath)
	if err != nil {
		return err
	}
	defer f.Close()

	// TOML形式でエンコードして書き込み
	encoder := toml.NewEncoder(f)
	return encoder.Encode(config)
}
