// Package kampunggames 提供跨世代社群平台的即時對局服務。
//
// 實現了長者與青年一對一配對、回合制對局與私訊連繫的即時服務器，
// 包含以下核心功能：
//
// 配對系統
//
// 以角色互補為前提的先到先得配對：
//   - 長者 / 青年雙佇列，按加入順序出隊
//   - 同遊戲類型才能成局
//   - 取消排隊與斷線自動清理
//   - 成局後雙方收到各自視角的配對通知
//
// 對局引擎
//
// 每個房間一個獨立會話，事件串行處理：
//   - 翻牌配對（Memory Match）：12 對符號牌，配中得分續手
//   - 猜字（Hangman）：逐字母輪流猜，猜中續手
//   - 任何一方棄權立即終局
//   - 終局發佈地區公告並記錄結果
//
// # WebSocket 通訊
//
// 實現了即時雙向通訊機制：
//   - 支援心跳檢測（Ping/Pong）
//   - 訊息廣播與單播
//   - 斷線重連後以 request_state 取回完整對局狀態
//   - 慢消費者丟棄保護
//
// 私訊與連續紀錄
//
// 配對後的兩人可持續保持連繫：
//   - 私訊即時投遞與盡力持久化
//   - 雙方同日都致信即累積連續紀錄
//   - 正在輸入指示
//
// 使用範例
//
// 啟動服務器：
//
//	hub := internal.NewHub(directory, logger)
//	engine := internal.NewGameEngine(registry, directory, notices, matches, hub, logger)
//	hub.Attach(matchmaker, registry, engine, presence, dm)
//
//	handler := internal.NewHandler(hub, matchmaker, engine, presence, nil, logger)
//	log.Fatal(http.ListenAndServe(":8080", handler.Routes()))
//
// 客戶端連接：
//
//	ws://localhost:8080/ws?user_id=123
//
// 架構設計
//
// 系統採用分層架構設計：
//   - Hub 層：連接管理與事件分派
//   - Matchmaker 層：等待佇列與成局
//   - Engine 層：對局狀態機與終局流程
//   - Store 層：身份、公告、連續紀錄與結果的持久化介面
//
// 每層都有明確的職責邊界，透過介面進行交互，便於測試與擴展。
//
// 配置選項
//
// 支援多種運行時配置：
//   - -port：服務監聽端口（預設 8080）
//   - -log-level：日誌級別（debug/info/warn/error）
//   - -postgres-url：PostgreSQL 連接字串（留空用內存後端）
//   - -streak-backend：連續紀錄後端（memory/postgres/redis）
//   - -demo：開放展演模式日期覆寫端點
package kampunggames
