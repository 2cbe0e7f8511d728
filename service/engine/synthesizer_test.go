package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/raydesk/raydesk/model"
	"github.com/raydesk/raydesk/model/modeltest"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func seededSynthesizer(t *testing.T) (*Synthesizer, *gorm.DB) {
	t.Helper()
	db, _ := modeltest.NewDB(t)
	modeltest.SeedUser(t, db, "u1", false)
	modeltest.SeedGroup(t, db, "u1", "g1")
	modeltest.SeedVmessEndpoint(t, db, "g1", "ep-vmess", true)
	modeltest.SeedShadowsocksEndpoint(t, db, "g1", "ep-ss", false)
	return NewSynthesizer(db, testLogger()), db
}

func renderMap(t *testing.T, s *Synthesizer, userID, endpointID string) map[string]any {
	t.Helper()
	data, err := s.Render(context.Background(), userID, endpointID)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal rendered config: %v", err)
	}
	return doc
}

func outboundAt(t *testing.T, doc map[string]any, i int) map[string]any {
	t.Helper()
	outs, ok := doc["outbounds"].([]any)
	if !ok || len(outs) <= i {
		t.Fatalf("expected at least %d outbounds, got %v", i+1, doc["outbounds"])
	}
	return outs[i].(map[string]any)
}

func TestRender_Deterministic(t *testing.T) {
	s, _ := seededSynthesizer(t)

	first, err := s.Render(context.Background(), "u1", "ep-vmess")
	if err != nil {
		t.Fatalf("first render: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := s.Render(context.Background(), "u1", "ep-vmess")
		if err != nil {
			t.Fatalf("render #%d: %v", i, err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("render #%d differs:\n%s\n---\n%s", i, first, again)
		}
	}
}

func TestRender_TopLevelSectionsInOrder(t *testing.T) {
	s, _ := seededSynthesizer(t)

	data, err := s.Render(context.Background(), "u1", "ep-vmess")
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		t.Fatalf("expected object start, got %v (%v)", tok, err)
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			t.Fatalf("read key: %v", err)
		}
		keys = append(keys, tok.(string))
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			t.Fatalf("skip value of %v: %v", tok, err)
		}
	}

	want := []string{"log", "inbounds", "stats", "api", "policy", "outbounds", "dns", "routing", "transport"}
	if !reflect.DeepEqual(keys, want) {
		t.Fatalf("expected top-level keys %v, got %v", want, keys)
	}
}

func TestSynthesize_VmessShape(t *testing.T) {
	s, _ := seededSynthesizer(t)
	doc := renderMap(t, s, "u1", "ep-vmess")

	primary := outboundAt(t, doc, 0)
	if primary["protocol"] != "vmess" || primary["tag"] != "proxy" {
		t.Fatalf("unexpected primary outbound: %v", primary)
	}
	mux := primary["mux"].(map[string]any)
	if mux["enabled"] != true || mux["concurrency"] != float64(8) {
		t.Fatalf("unexpected mux: %v", mux)
	}

	vnext := primary["settings"].(map[string]any)["vnext"].([]any)
	server := vnext[0].(map[string]any)
	if server["address"] != "vmess.example.com" || server["port"] != float64(443) {
		t.Fatalf("unexpected vnext server: %v", server)
	}
	user := server["users"].([]any)[0].(map[string]any)
	if user["id"] != modeltest.VmessUUID || user["alterId"] != float64(0) || user["security"] != "auto" {
		t.Fatalf("unexpected vmess user: %v", user)
	}

	stream := primary["streamSettings"].(map[string]any)
	if stream["network"] != "ws" || stream["security"] != "tls" {
		t.Fatalf("unexpected stream settings: %v", stream)
	}
	ws := stream["wsSettings"].(map[string]any)
	if ws["path"] != "/ray" {
		t.Fatalf("unexpected ws path: %v", ws["path"])
	}
	if host := ws["headers"].(map[string]any)["Host"]; host != "cdn.example.com" {
		t.Fatalf("unexpected ws host header: %v", host)
	}
	tls := stream["tlsSettings"].(map[string]any)
	if tls["allowInsecure"] != false || tls["serverName"] != "cdn.example.com" || tls["fingerprint"] != "chrome" {
		t.Fatalf("unexpected tls settings: %v", tls)
	}
}

func TestSynthesize_BuiltinOutbounds(t *testing.T) {
	s, _ := seededSynthesizer(t)
	doc := renderMap(t, s, "u1", "ep-vmess")

	direct := outboundAt(t, doc, 1)
	if direct["protocol"] != "freedom" || direct["tag"] != TagDirect {
		t.Fatalf("unexpected direct outbound: %v", direct)
	}
	settings := direct["settings"].(map[string]any)
	if _, nested := settings["freedom"]; nested {
		t.Fatalf("freedom settings must not be nested: %v", settings)
	}
	if settings["domainStrategy"] != "UseIP" {
		t.Fatalf("unexpected freedom settings: %v", settings)
	}

	block := outboundAt(t, doc, 2)
	if block["protocol"] != "blackhole" || block["tag"] != TagBlock {
		t.Fatalf("unexpected block outbound: %v", block)
	}
	resp := block["settings"].(map[string]any)["response"].(map[string]any)
	if resp["type"] != "none" {
		t.Fatalf("unexpected blackhole response: %v", resp)
	}
}

func TestSynthesize_InboundsAndRouting(t *testing.T) {
	s, _ := seededSynthesizer(t)
	doc := renderMap(t, s, "u1", "ep-vmess")

	inbounds := doc["inbounds"].([]any)
	if len(inbounds) != 3 {
		t.Fatalf("expected 3 inbounds, got %d", len(inbounds))
	}
	httpIn := inbounds[0].(map[string]any)
	if httpIn["tag"] != model.TagHTTPInbound || httpIn["port"] != float64(10809) {
		t.Fatalf("unexpected http inbound: %v", httpIn)
	}
	if _, ok := httpIn["allocate"]; ok {
		t.Fatalf("allocate must be omitted when not configured: %v", httpIn)
	}
	apiIn := inbounds[2].(map[string]any)
	if addr := apiIn["settings"].(map[string]any)["address"]; addr != "127.0.0.1" {
		t.Fatalf("unexpected dokodemo-door settings: %v", apiIn)
	}

	rules := doc["routing"].(map[string]any)["settings"].(map[string]any)["rules"].([]any)
	rule := rules[0].(map[string]any)
	if rule["outboundTag"] != TagAPI || rule["inboundTag"].([]any)[0] != TagAPI {
		t.Fatalf("unexpected routing rule: %v", rule)
	}

	hosts := doc["dns"].(map[string]any)["hosts"].(map[string]any)
	if hosts["dns.google"] != "8.8.8.8" {
		t.Fatalf("unexpected dns hosts: %v", hosts)
	}
}

func TestSynthesize_ShadowsocksWithoutTLS(t *testing.T) {
	s, _ := seededSynthesizer(t)
	doc := renderMap(t, s, "u1", "ep-ss")

	primary := outboundAt(t, doc, 0)
	if primary["protocol"] != "shadowsocks" {
		t.Fatalf("expected shadowsocks, got %v", primary["protocol"])
	}
	server := primary["settings"].(map[string]any)["servers"].([]any)[0].(map[string]any)
	if server["method"] != "aes-256-gcm" || server["password"] != "secret" || server["port"] != float64(8388) {
		t.Fatalf("unexpected shadowsocks server: %v", server)
	}
	stream := primary["streamSettings"].(map[string]any)
	if _, ok := stream["tlsSettings"]; ok {
		t.Fatalf("tlsSettings must be omitted without a TLS row: %v", stream)
	}
	header := stream["tcpSettings"].(map[string]any)["header"].(map[string]any)
	if header["type"] != "none" {
		t.Fatalf("unexpected tcp header: %v", header)
	}
}

func TestSynthesize_TrojanAndHysteria2(t *testing.T) {
	s, db := seededSynthesizer(t)

	for _, v := range []any{
		&model.Endpoint{EndpointID: "ep-trojan", GroupID: "g1"},
		&model.Outbound{EndpointID: "ep-trojan", Protocol: "trojan", Tag: "proxy"},
		&model.StreamSettings{EndpointID: "ep-trojan", Network: "grpc", Security: "tls"},
		&model.GrpcSettings{EndpointID: "ep-trojan", ServiceName: "tun"},
		&model.TrojanServer{EndpointID: "ep-trojan", Address: "trojan.example.com", Port: "443", Password: "pw"},
		&model.Endpoint{EndpointID: "ep-hy2", GroupID: "g1"},
		&model.Outbound{EndpointID: "ep-hy2", Protocol: "hysteria2", Tag: "proxy"},
		&model.StreamSettings{EndpointID: "ep-hy2", Network: "quic"},
		&model.QuicSettings{EndpointID: "ep-hy2", HeaderType: "wechat-video"},
		&model.Hysteria2{EndpointID: "ep-hy2", Address: "hy2.example.com", Port: "8443"},
	} {
		if err := db.Create(v).Error; err != nil {
			t.Fatalf("create %T: %v", v, err)
		}
	}

	trojan := outboundAt(t, renderMap(t, s, "u1", "ep-trojan"), 0)
	server := trojan["settings"].(map[string]any)["servers"].([]any)[0].(map[string]any)
	if server["password"] != "pw" || server["level"] != float64(0) {
		t.Fatalf("unexpected trojan server: %v", server)
	}
	grpc := trojan["streamSettings"].(map[string]any)["grpcSettings"].(map[string]any)
	if grpc["serviceName"] != "tun" {
		t.Fatalf("unexpected grpc settings: %v", grpc)
	}

	hy2 := outboundAt(t, renderMap(t, s, "u1", "ep-hy2"), 0)
	stream := hy2["streamSettings"].(map[string]any)
	if stream["security"] != "none" {
		t.Fatalf("expected default security none, got %v", stream["security"])
	}
	header := stream["quicSettings"].(map[string]any)["header"].(map[string]any)
	if header["type"] != "wechat-video" {
		t.Fatalf("unexpected quic header: %v", header)
	}
}

// seedTrojanStream trojan 节点，传输方式和对应的设置行由调用方给出
func seedTrojanStream(t *testing.T, db *gorm.DB, endpointID, network string, rows ...any) {
	t.Helper()
	values := []any{
		&model.Endpoint{EndpointID: endpointID, GroupID: "g1"},
		&model.Outbound{EndpointID: endpointID, Protocol: "trojan", Tag: "proxy"},
		&model.StreamSettings{EndpointID: endpointID, Network: network},
		&model.TrojanServer{EndpointID: endpointID, Address: "trojan.example.com", Port: "443", Password: "pw"},
	}
	for _, v := range append(values, rows...) {
		if err := db.Create(v).Error; err != nil {
			t.Fatalf("create %T: %v", v, err)
		}
	}
}

func streamOf(t *testing.T, s *Synthesizer, endpointID string) map[string]any {
	t.Helper()
	return outboundAt(t, renderMap(t, s, "u1", endpointID), 0)["streamSettings"].(map[string]any)
}

func TestSynthesize_StreamNetworks(t *testing.T) {
	s, db := seededSynthesizer(t)
	path, host, method := "/upload", "h2.example.com", "POST"

	seedTrojanStream(t, db, "ep-kcp", "kcp", &model.KcpSettings{
		EndpointID:       "ep-kcp",
		MTU:              "1350",
		TTI:              "50",
		UplinkCapacity:   "5",
		DownlinkCapacity: "020",
		Congestion:       1,
		ReadBufferSize:   "2",
		WriteBufferSize:  "2",
		HeaderType:       "srtp",
	})
	seedTrojanStream(t, db, "ep-h2", "h2", &model.Http2Settings{EndpointID: "ep-h2", Host: host, Path: &path, Method: &method})
	seedTrojanStream(t, db, "ep-http", "http", &model.Http2Settings{EndpointID: "ep-http"})
	seedTrojanStream(t, db, "ep-tcp-http", "tcp", &model.TcpSettings{
		EndpointID:  "ep-tcp-http",
		HeaderType:  "http",
		RequestPath: &path,
		RequestHost: &host,
	})
	seedTrojanStream(t, db, "ep-tcp-bare", "tcp")

	t.Run("kcp", func(t *testing.T) {
		kcp := streamOf(t, s, "ep-kcp")["kcpSettings"].(map[string]any)
		want := map[string]any{
			"mtu":              float64(1350),
			"tti":              float64(50),
			"uplinkCapacity":   float64(5),
			"downlinkCapacity": float64(20),
			"congestion":       true,
			"readBufferSize":   float64(2),
			"writeBufferSize":  float64(2),
			"header":           map[string]any{"type": "srtp"},
		}
		if !reflect.DeepEqual(kcp, want) {
			t.Fatalf("expected kcp %v, got %v", want, kcp)
		}
	})

	t.Run("h2", func(t *testing.T) {
		stream := streamOf(t, s, "ep-h2")
		if stream["network"] != "h2" {
			t.Fatalf("expected network h2, got %v", stream["network"])
		}
		h := stream["httpSettings"].(map[string]any)
		if !reflect.DeepEqual(h["host"], []any{host}) || h["path"] != path || h["method"] != method {
			t.Fatalf("unexpected httpSettings: %v", h)
		}
	})

	t.Run("http defaults", func(t *testing.T) {
		h := streamOf(t, s, "ep-http")["httpSettings"].(map[string]any)
		if !reflect.DeepEqual(h["host"], []any{}) || h["path"] != "/" || h["method"] != "PUT" {
			t.Fatalf("unexpected default httpSettings: %v", h)
		}
	})

	t.Run("tcp http header", func(t *testing.T) {
		header := streamOf(t, s, "ep-tcp-http")["tcpSettings"].(map[string]any)["header"].(map[string]any)
		request := map[string]any{
			"path":    []any{path},
			"headers": map[string]any{"Host": []any{host}},
		}
		want := map[string]any{"type": "http", "request": request}
		if !reflect.DeepEqual(header, want) {
			t.Fatalf("expected tcp header %v, got %v", want, header)
		}
	})

	t.Run("tcp without settings row", func(t *testing.T) {
		header := streamOf(t, s, "ep-tcp-bare")["tcpSettings"].(map[string]any)["header"].(map[string]any)
		if !reflect.DeepEqual(header, map[string]any{"type": "none"}) {
			t.Fatalf("expected bare none header, got %v", header)
		}
	})
}

func TestSynthesize_StreamErrors(t *testing.T) {
	s, db := seededSynthesizer(t)

	seedTrojanStream(t, db, "ep-unknown", "carrier-pigeon")
	seedTrojanStream(t, db, "ep-kcp-missing", "kcp")
	seedTrojanStream(t, db, "ep-kcp-hex", "kcp", &model.KcpSettings{
		EndpointID:       "ep-kcp-hex",
		MTU:              "0x546",
		TTI:              "50",
		UplinkCapacity:   "5",
		DownlinkCapacity: "20",
		ReadBufferSize:   "2",
		WriteBufferSize:  "2",
	})

	cases := []struct {
		endpointID string
		section    string
		target     error
	}{
		{"ep-unknown", "streamSettings", ErrUnsupportedNetwork},
		{"ep-kcp-missing", "kcpSettings", gorm.ErrRecordNotFound},
		{"ep-kcp-hex", "kcpSettings", nil},
	}
	for _, tc := range cases {
		_, err := s.Synthesize(context.Background(), "u1", tc.endpointID)
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) || cfgErr.Section != tc.section {
			t.Fatalf("%s: expected %s ConfigError, got %v", tc.endpointID, tc.section, err)
		}
		if tc.target != nil && !errors.Is(err, tc.target) {
			t.Fatalf("%s: expected %v in chain, got %v", tc.endpointID, tc.target, err)
		}
	}
}

func TestSynthesize_RejectsForeignEndpoint(t *testing.T) {
	s, db := seededSynthesizer(t)
	modeltest.SeedGroup(t, db, "u2", "g2")
	modeltest.SeedShadowsocksEndpoint(t, db, "g2", "ep-foreign", false)

	_, err := s.Synthesize(context.Background(), "u1", "ep-foreign")
	var assocErr *AssociationError
	if !errors.As(err, &assocErr) {
		t.Fatalf("expected AssociationError, got %v", err)
	}
	if assocErr.UserID != "u1" || assocErr.EndpointID != "ep-foreign" {
		t.Fatalf("unexpected association error fields: %+v", assocErr)
	}

	_, err = s.Synthesize(context.Background(), "u1", "missing")
	if !errors.As(err, &assocErr) {
		t.Fatalf("expected AssociationError for unknown endpoint, got %v", err)
	}
}

func TestSynthesize_BadPortIsConfigError(t *testing.T) {
	s, db := seededSynthesizer(t)
	if err := db.Model(&model.Shadowsocks{}).Where("EndpointID = ?", "ep-ss").Update("Port", "not-a-port").Error; err != nil {
		t.Fatalf("update port: %v", err)
	}

	_, err := s.Synthesize(context.Background(), "u1", "ep-ss")
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if cfgErr.Section != "shadowsocks" {
		t.Fatalf("expected section shadowsocks, got %q", cfgErr.Section)
	}
}

func TestSynthesize_MissingLogIsConfigError(t *testing.T) {
	s, db := seededSynthesizer(t)
	if err := db.Where("UserID = ?", "u1").Delete(&model.Log{}).Error; err != nil {
		t.Fatalf("delete log: %v", err)
	}

	_, err := s.Synthesize(context.Background(), "u1", "ep-vmess")
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Section != "log" {
		t.Fatalf("expected log ConfigError, got %v", err)
	}
}

func TestSynthesize_UnsupportedProtocol(t *testing.T) {
	s, db := seededSynthesizer(t)
	if err := db.Model(&model.Outbound{}).Where("EndpointID = ?", "ep-ss").Update("Protocol", "wireguard").Error; err != nil {
		t.Fatalf("update protocol: %v", err)
	}

	_, err := s.Synthesize(context.Background(), "u1", "ep-ss")
	if !errors.Is(err, ErrUnsupportedProtocol) {
		t.Fatalf("expected ErrUnsupportedProtocol, got %v", err)
	}
}

func TestSynthesize_InvalidVmessID(t *testing.T) {
	s, db := seededSynthesizer(t)
	if err := db.Model(&model.VmessUser{}).Where("EndpointID = ?", "ep-vmess").Update("UUID", "not-a-uuid").Error; err != nil {
		t.Fatalf("update uuid: %v", err)
	}

	_, err := s.Synthesize(context.Background(), "u1", "ep-vmess")
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Section != "vmess" {
		t.Fatalf("expected vmess ConfigError, got %v", err)
	}
}

func TestSynthesize_DefaultDNSWhenUnset(t *testing.T) {
	s, db := seededSynthesizer(t)
	if err := db.Where("UserID = ?", "u1").Delete(&model.DNS{}).Error; err != nil {
		t.Fatalf("delete dns: %v", err)
	}

	doc := renderMap(t, s, "u1", "ep-vmess")
	hosts := doc["dns"].(map[string]any)["hosts"].(map[string]any)
	if len(hosts) != 1 || hosts["dns.google"] != "8.8.8.8" {
		t.Fatalf("expected default dns hosts, got %v", hosts)
	}
}

func TestSynthesize_NilDB(t *testing.T) {
	s := NewSynthesizer(nil, testLogger())

	_, err := s.Synthesize(context.Background(), "u1", "ep")
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Section != "database" {
		t.Fatalf("expected database ConfigError, got %v", err)
	}
}

func TestParseDNS(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"plain host", `{"hosts":{"dns.google":"8.8.8.8"}}`, false},
		{"prefixed keys", `{"hosts":{"geosite:cn":"1.1.1.1","domain:example.org":"example.net","full:a.example":"::1"}}`, false},
		{"empty hosts", `{}`, false},
		{"unknown field", `{"hosts":{},"bogus":1}`, true},
		{"not json", `hosts=1`, true},
		{"label too long", `{"hosts":{"` + strings.Repeat("a", 64) + `.com":"1.1.1.1"}}`, true},
		{"missing address", `{"hosts":{"example.com":""}}`, true},
		{"space in name", `{"hosts":{"exa mple.com":"1.1.1.1"}}`, true},
		{"space in address", `{"hosts":{"example.com":"not an address"}}`, true},
		{"underscore", `{"hosts":{"bad_host.example":"1.1.1.1"}}`, true},
		{"prefixed bad name", `{"hosts":{"domain:a b.example":"1.1.1.1"}}`, true},
		{"unicode name", `{"hosts":{"bücher.example":"1.2.3.4"}}`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := ParseDNS(tc.raw)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %s", tc.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if d.Hosts == nil {
				t.Fatalf("expected non-nil hosts map")
			}
		})
	}
}

func TestWriteConfig_ReplacesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	if err := WriteConfig(path, []byte(`{"a":1}`)); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteConfig(path, []byte(`{"a":2}`)); err != nil {
		t.Fatalf("second write: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != `{"a":2}` {
		t.Fatalf("expected replaced content, got %s", got)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected no leftover temp files, got %d entries", len(entries))
	}
}
