package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Key: device ID (same value placed in ctx under CtxDeviceKey)
// Val: raw JSON bytes for that device, decoded over Default()
// -----------------------------------------------------------------------------

const cfgEir = `{
  "profile": "eir",
  "node": {"name": "hati_eir_node", "namespace": "hati"},
  "link": {"kind": "usb"},
  "heartbeat": {"pin": 20, "interval_ms": 300}
}`

const cfgEirUART = `{
  "profile": "eir",
  "node": {"name": "hati_eir_node", "namespace": "hati"},
  "link": {"kind": "uart", "uart": "uart0", "baud": 115200, "tx_pin": 0, "rx_pin": 1}
}`

const cfgSubscriber = `{
  "profile": "subscriber",
  "node": {"name": "pico_node", "namespace": ""}
}`

const cfgServiceServer = `{
  "profile": "service_server",
  "node": {"name": "pico_node", "namespace": ""}
}`

const cfgServiceClient = `{
  "profile": "service_client",
  "node": {"name": "pico_node", "namespace": ""}
}`

var embeddedConfigs = map[string][]byte{
	"eir":                 []byte(cfgEir),
	"eir_uart":            []byte(cfgEirUART),
	"pico_subscriber":     []byte(cfgSubscriber),
	"pico_service_server": []byte(cfgServiceServer),
	"pico_service_client": []byte(cfgServiceClient),
}
