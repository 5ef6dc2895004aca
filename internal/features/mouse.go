package features

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/char5742/abs2rel/internal/consts"
	"github.com/char5742/abs2rel/internal/event"
	"github.com/char5742/abs2rel/internal/types"
	"github.com/char5742/abs2rel/internal/utils"
)

// 相対座標出力デバイスを表現するインターフェース
type Mouse interface {
	// パイプラインのイベントを1つ書き込む
	Emit(ev event.Event) error
	// SYN_REPORTを発行してレポートを確定する
	Sync() error
	io.Closer
}

type virtualMouse struct {
	name       []byte
	deviceFile *os.File
}

// 新しい仮想マウスデバイスを作成する
func CreateMouse(path string, name []byte) (Mouse, error) {
	fd, err := createMouse(path, name)
	if err != nil {
		return nil, err
	}

	return &virtualMouse{name: name, deviceFile: fd}, nil
}

func (vm *virtualMouse) Emit(ev event.Event) error {
	return writeEvents(vm.deviceFile, []types.Event{
		{Type: ev.Type, Code: ev.Code, Value: ev.Value},
	})
}

func (vm *virtualMouse) Sync() error {
	return writeEvents(vm.deviceFile, []types.Event{
		{Type: event.Syn, Code: event.SynReport, Value: 0},
	})
}

func (vm *virtualMouse) Close() error {
	_ = releaseDevice(vm.deviceFile)
	return vm.deviceFile.Close()
}

func createMouse(path string, name []byte) (*os.File, error) {
	deviceFile, err := createDeviceFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not create relative axis input device: %v", err)
	}

	// キー入力イベント(EV_KEY)を登録する
	// これによりボタンやタッチ信号の中継が可能になる
	err = registerDevice(deviceFile, uintptr(event.Key))
	if err != nil {
		_ = deviceFile.Close()
		return nil, fmt.Errorf("キー入力イベント(EV_KEY)の登録に失敗しました: %v", err)
	}

	// 中継するキーの種類（マウスボタン、タッチ信号など）を登録する
	for _, ev := range []int{
		event.MouseBtnLeft,  // マウス左ボタン
		event.MouseBtnRight, // マウス右ボタン
		event.BtnTouch,      // タッチ信号（抑制しない設定の場合に中継される）
		event.Btn0,          // 汎用ボタン0（同上）
	} {
		if err = utils.IOCtl(deviceFile, consts.SetKeyBit, uintptr(ev)); err != nil {
			_ = deviceFile.Close()
			return nil, fmt.Errorf("キー入力種別の登録に失敗しました %v: %v", ev, err)
		}
	}

	// 相対座標入力イベント(EV_REL)を登録する
	// 変換後のカーソル移動はこのイベントで出力される
	err = registerDevice(deviceFile, uintptr(event.Rel))
	if err != nil {
		_ = deviceFile.Close()
		return nil, fmt.Errorf("相対座標入力イベント(EV_REL)の登録に失敗しました: %v", err)
	}

	// X軸とY軸の相対移動を登録する
	for _, ev := range []int{event.RelX, event.RelY} {
		if err = utils.IOCtl(deviceFile, consts.SetRelBit, uintptr(ev)); err != nil {
			_ = deviceFile.Close()
			return nil, fmt.Errorf("座標軸の登録に失敗しました %v: %v", ev, err)
		}
	}

	userDev := types.UserDev{
		Name: toUinputName(name),
		ID: types.InputID{
			Bustype: consts.BusUsb,
			Vendor:  0x4711,
			Product: 0x0818,
			Version: 1,
		},
	}

	fd, err := createUsbDevice(deviceFile, userDev)
	if err != nil {
		_ = deviceFile.Close()
		return nil, fmt.Errorf("USBデバイスの作成に失敗しました: %v", err)
	}

	return fd, nil
}

// デバイスファイルを作成する
func createDeviceFile(path string) (fd *os.File, err error) {
	deviceFile, err := os.OpenFile(path, syscall.O_WRONLY|syscall.O_NONBLOCK, 0660)
	if err != nil {
		return nil, errors.New("デバイスファイルを開くのに失敗しました")
	}
	return deviceFile, err
}

// デバイスを解放する
func releaseDevice(deviceFile *os.File) error {
	return utils.IOCtl(deviceFile, consts.DevDestroy, uintptr(0))
}

// デバイスを登録する
func registerDevice(deviceFile *os.File, evType uintptr) error {
	err := utils.IOCtl(deviceFile, consts.SetEvBit, evType)
	if err != nil {
		defer deviceFile.Close()
		err = releaseDevice(deviceFile)
		if err != nil {
			return fmt.Errorf("デバイスを解放するのに失敗しました: %v", err)
		}
		return fmt.Errorf("無効なファイルハンドルがutils.IOCtlから返されました: %v", err)
	}
	return nil
}

// USBデバイスを作成する
func createUsbDevice(deviceFile *os.File, dev types.UserDev) (fd *os.File, err error) {
	buf := new(bytes.Buffer)
	err = binary.Write(buf, binary.LittleEndian, dev)
	if err != nil {
		_ = deviceFile.Close()
		return nil, fmt.Errorf("ユーザーデバイスバッファの書き込みに失敗しました: %v", err)
	}
	_, err = deviceFile.Write(buf.Bytes())
	if err != nil {
		_ = deviceFile.Close()
		return nil, fmt.Errorf("デバイス構造体をデバイスファイルに書き込むのに失敗しました: %v", err)
	}

	err = utils.IOCtl(deviceFile, consts.DevCreate, uintptr(0))
	if err != nil {
		_ = deviceFile.Close()
		return nil, fmt.Errorf("デバイスの作成に失敗しました: %v", err)
	}

	return deviceFile, err
}

// イベントを書き込む
func writeEvents(deviceFile *os.File, events []types.Event) error {
	for _, ev := range events {
		buf := new(bytes.Buffer)
		if err := binary.Write(buf, binary.LittleEndian, ev); err != nil {
			return fmt.Errorf("イベントをバッファに書き込むのに失敗しました: %v", err)
		}
		if _, err := deviceFile.Write(buf.Bytes()); err != nil {
			return fmt.Errorf("イベントの書き込みに失敗しました: %v", err)
		}
	}
	return nil
}

// 名前をuinput用の固定長配列に変換する
func toUinputName(name []byte) (uinputName [consts.MaxNameSize]byte) {
	var fixedSizeName [consts.MaxNameSize]byte
	copy(fixedSizeName[:], name)
	return fixedSizeName
}
