package engine

import (
	"fmt"

	"github.com/raydesk/raydesk/model"
	"gorm.io/gorm"
)

func loadStreamSettings(db *gorm.DB, endpointID string) (StreamSettings, error) {
	var row model.StreamSettings
	if err := db.Where("EndpointID = ?", endpointID).First(&row).Error; err != nil {
		return StreamSettings{}, configErr("streamSettings", err)
	}

	ss := StreamSettings{Network: row.Network, Security: row.Security}
	if ss.Security == "" {
		ss.Security = "none"
	}

	var err error
	switch row.Network {
	case "tcp":
		ss.TCPSettings, err = loadTCP(db, endpointID)
	case "kcp":
		ss.KCPSettings, err = loadKCP(db, endpointID)
	case "http", "h2":
		ss.HTTPSettings, err = loadHTTP(db, endpointID)
	case "quic":
		ss.QUICSettings, err = loadQUIC(db, endpointID)
	case "grpc":
		ss.GRPCSettings, err = loadGRPC(db, endpointID)
	case "ws":
		ss.WSSettings, err = loadWS(db, endpointID)
	default:
		err = configErr("streamSettings", fmt.Errorf("%w: %q", ErrUnsupportedNetwork, row.Network))
	}
	if err != nil {
		return StreamSettings{}, err
	}

	ss.TLSSettings, err = loadTLS(db, endpointID)
	if err != nil {
		return StreamSettings{}, err
	}
	return ss, nil
}

// loadTCP 没有 TcpSettings 记录时按无伪装处理
func loadTCP(db *gorm.DB, endpointID string) (*TCPSettings, error) {
	var rows []model.TcpSettings
	if err := db.Where("EndpointID = ?", endpointID).Limit(1).Find(&rows).Error; err != nil {
		return nil, configErr("tcpSettings", err)
	}
	if len(rows) == 0 {
		return &TCPSettings{Header: TCPHeader{Type: "none"}}, nil
	}
	row := rows[0]

	header := TCPHeader{Type: optionalString(&row.HeaderType, "none")}
	path := optionalString(row.RequestPath, "")
	host := optionalString(row.RequestHost, "")
	if path != "" || host != "" {
		req := &TCPRequest{}
		if path != "" {
			req.Path = []string{path}
		}
		if host != "" {
			req.Headers = map[string][]string{"Host": {host}}
		}
		header.Request = req
	}
	return &TCPSettings{Header: header}, nil
}

func loadKCP(db *gorm.DB, endpointID string) (*KCPSettings, error) {
	var row model.KcpSettings
	if err := db.Where("EndpointID = ?", endpointID).First(&row).Error; err != nil {
		return nil, configErr("kcpSettings", err)
	}

	kcp := &KCPSettings{Header: PacketHeader{Type: optionalString(&row.HeaderType, "none")}}
	fields := []struct {
		name string
		raw  string
		dst  *uint32
	}{
		{"MTU", row.MTU, &kcp.MTU},
		{"TTI", row.TTI, &kcp.TTI},
		{"UplinkCapacity", row.UplinkCapacity, &kcp.UplinkCapacity},
		{"DownlinkCapacity", row.DownlinkCapacity, &kcp.DownlinkCapacity},
		{"ReadBufferSize", row.ReadBufferSize, &kcp.ReadBufferSize},
		{"WriteBufferSize", row.WriteBufferSize, &kcp.WriteBufferSize},
	}

	for _, f := range fields {
		v, err := ParseUint32(f.raw)
		if err != nil {
			return nil, configErr("kcpSettings", fmt.Errorf("%s: %w", f.name, err))
		}
		*f.dst = v
	}

	congestion, err := ParseFlag(row.Congestion)
	if err != nil {
		return nil, configErr("kcpSettings", fmt.Errorf("Congestion: %w", err))
	}
	kcp.Congestion = congestion
	return kcp, nil
}

func loadHTTP(db *gorm.DB, endpointID string) (*HTTPSettings, error) {
	var row model.Http2Settings
	if err := db.Where("EndpointID = ?", endpointID).First(&row).Error; err != nil {
		return nil, configErr("httpSettings", err)
	}
	h := &HTTPSettings{
		Host:   []string{},
		Path:   optionalString(row.Path, "/"),
		Method: optionalString(row.Method, "PUT"),
	}
	if row.Host != "" {
		h.Host = append(h.Host, row.Host)
	}
	return h, nil
}

func loadQUIC(db *gorm.DB, endpointID string) (*QUICSettings, error) {
	var row model.QuicSettings
	if err := db.Where("EndpointID = ?", endpointID).First(&row).Error; err != nil {
		return nil, configErr("quicSettings", err)
	}
	return &QUICSettings{
		Security: optionalString(&row.Security, "none"),
		Key:      row.Key,
		Header:   PacketHeader{Type: optionalString(&row.HeaderType, "none")},
	}, nil
}

func loadGRPC(db *gorm.DB, endpointID string) (*GRPCSettings, error) {
	var row model.GrpcSettings
	if err := db.Where("EndpointID = ?", endpointID).First(&row).Error; err != nil {
		return nil, configErr("grpcSettings", err)
	}
	return &GRPCSettings{ServiceName: row.ServiceName}, nil
}

func loadWS(db *gorm.DB, endpointID string) (*WSSettings, error) {
	var row model.WsSettings
	if err := db.Where("EndpointID = ?", endpointID).First(&row).Error; err != nil {
		return nil, configErr("wsSettings", err)
	}
	ws := &WSSettings{Path: optionalString(&row.Path, "/")}
	if row.Host != "" {
		ws.Headers = map[string]string{"Host": row.Host}
	}
	return ws, nil
}

// loadTLS TLS 设置可选，缺失时返回 nil
func loadTLS(db *gorm.DB, endpointID string) (*TLSSettings, error) {
	var rows []model.TlsSettings
	if err := db.Where("EndpointID = ?", endpointID).Limit(1).Find(&rows).Error; err != nil {
		return nil, configErr("tlsSettings", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	allowInsecure, err := ParseFlag(rows[0].AllowInsecure)
	if err != nil {
		return nil, configErr("tlsSettings", fmt.Errorf("AllowInsecure: %w", err))
	}
	return &TLSSettings{
		AllowInsecure: allowInsecure,
		ServerName:    rows[0].ServerName,
		Fingerprint:   rows[0].FingerPrint,
	}, nil
}
