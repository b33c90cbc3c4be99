package identity

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/benmeehan/soil-node/pkg/file"
)

var (
	ErrMissingOTAAKeys = errors.New("identity has no DevEUI or AppKey for OTAA")
	ErrMissingABPKeys  = errors.New("identity has no DevAddr or session keys for ABP")
)

// Identity holds the node's radio network identifiers and root keys.
type Identity struct {
	DevEUI  EUI64     `json:"dev_eui"`
	JoinEUI EUI64     `json:"join_eui"`
	AppKey  AES128Key `json:"app_key"`

	// Pre-shared session for activation by personalisation.
	DevAddr DevAddr   `json:"dev_addr"`
	NwkSKey AES128Key `json:"nwk_s_key"`
	AppSKey AES128Key `json:"app_s_key"`
}

// CanJoinOTAA reports whether the identity carries the keys for a negotiated join.
func (i *Identity) CanJoinOTAA() error {
	if i.DevEUI.IsZero() || i.AppKey.IsZero() {
		return ErrMissingOTAAKeys
	}
	return nil
}

// CanJoinABP reports whether the identity carries a pre-shared session.
func (i *Identity) CanJoinABP() error {
	if i.DevAddr.IsZero() || i.NwkSKey.IsZero() || i.AppSKey.IsZero() {
		return ErrMissingABPKeys
	}
	return nil
}

// DeviceInfoInterface defines methods for loading the device identity.
type DeviceInfoInterface interface {
	LoadDeviceInfo() error
	GetDevEUI() EUI64
	GetDeviceIdentity() *Identity
}

// DeviceInfo manages the device identity and its associated file operations.
type DeviceInfo struct {
	DeviceInfoFile string
	Identity       Identity
	fileOps        file.FileOperations
}

// NewDeviceInfo initializes a new DeviceInfo instance.
func NewDeviceInfo(filePath string, fileOps file.FileOperations) DeviceInfoInterface {
	return &DeviceInfo{
		DeviceInfoFile: filePath,
		fileOps:        fileOps,
		Identity:       Identity{},
	}
}

// LoadDeviceInfo reads the device information from the file and populates the Identity field.
// The file is provisioned with the node; a missing file is an error since nothing fills
// the identity in later.
func (d *DeviceInfo) LoadDeviceInfo() error {
	var id Identity
	if err := d.fileOps.ReadJsonFile(d.DeviceInfoFile, &id); err != nil {
		return fmt.Errorf("failed to read device identity %s: %w", d.DeviceInfoFile, err)
	}
	d.Identity = id
	return nil
}

// GetDeviceIdentity returns the current device Identity.
func (d *DeviceInfo) GetDeviceIdentity() *Identity {
	return &d.Identity
}

// GetDevEUI returns the device EUI.
func (d *DeviceInfo) GetDevEUI() EUI64 {
	return d.Identity.DevEUI
}

// NewDevNonce returns a random nonce for one join request.
func NewDevNonce() ([2]byte, error) {
	var nonce [2]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nonce, fmt.Errorf("failed to generate dev nonce: %w", err)
	}
	return nonce, nil
}
